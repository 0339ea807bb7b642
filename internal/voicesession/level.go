package voicesession

// Audio-level bounds for the cosmetic waveform. The level is a pure
// function of the speaking flag and the supplied random source, so the
// animation tick owns no state.
const (
	idleLevel    = 0.1
	speakingMin  = 0.3
	speakingSpan = 0.6
)

// Level returns the display audio level for one animation frame. rnd
// must return values in [0, 1).
func Level(speaking bool, rnd func() float64) float64 {
	if !speaking {
		return idleLevel
	}
	return speakingMin + rnd()*speakingSpan
}
