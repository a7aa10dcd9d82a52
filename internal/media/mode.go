package media

// Mode selects what Download produces.
type Mode string

const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

// ParseMode maps a request value to a Mode. Only "audio" selects audio;
// anything else, including an empty or unknown value, falls back to video.
func ParseMode(s string) Mode {
	if s == string(ModeAudio) {
		return ModeAudio
	}
	return ModeVideo
}
