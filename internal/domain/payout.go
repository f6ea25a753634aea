package domain

// payoutSchedule maps a trade duration in seconds to its profit percentage.
// The schedule is fixed by the platform; durations outside it fall back to
// the default.
var payoutSchedule = map[int]int{
	30:  10,
	60:  15,
	90:  20,
	120: 25,
	180: 30,
	240: 50,
	300: 75,
	600: 100,
}

const defaultPayoutPercentage = 10

// PercentageFor returns the profit percentage for a trade duration.
func PercentageFor(durationSeconds int) int {
	if pct, ok := payoutSchedule[durationSeconds]; ok {
		return pct
	}
	return defaultPayoutPercentage
}
