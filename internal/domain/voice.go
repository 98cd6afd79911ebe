package domain

// VoiceConfig selects the voice and rendering parameters used for speech
// synthesis.
type VoiceConfig struct {
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}
