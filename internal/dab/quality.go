package dab

// BestQuality picks the single highest fidelity-tier candidate:
// descending by (sample rate, bit depth). Ties keep the earlier
// candidate, so search relevance order is the tiebreak.
func BestQuality(tracks []Track) *Track {
	if len(tracks) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(tracks); i++ {
		a, b := tracks[i].AudioQuality, tracks[best].AudioQuality
		if a.SampleRate > b.SampleRate ||
			(a.SampleRate == b.SampleRate && a.BitDepth > b.BitDepth) {
			best = i
		}
	}
	return &tracks[best]
}
