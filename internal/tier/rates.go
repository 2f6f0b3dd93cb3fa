package tier

// MealRange is the daily meal allowance interval for a tier, in CHF.
type MealRange struct {
	Min float64
	Max float64
}

// Observed nightly hotel rates per tier (scraped examples, CHF).
var hotelRates = map[Label][]float64{
	T1: {332.00, 203.00, 360.65, 223.75, 190.55, 169.80, 215.00},
	T2: {214.00, 170.00, 176.00, 225.00, 174.20, 134.00, 116.00},
	T3: {161.00, 179.00, 154.00, 223.50, 223.00, 150.00, 142.00},
}

var mealRanges = map[Label]MealRange{
	T1: {Min: 80.0, Max: 100.0},
	T2: {Min: 75.0, Max: 95.0},
	T3: {Min: 65.0, Max: 85.0},
}

// HotelRates returns a copy of the observed nightly rates for l.
// Unknown labels use the T3 table.
func HotelRates(l Label) []float64 {
	rates, ok := hotelRates[l]
	if !ok {
		rates = hotelRates[T3]
	}
	out := make([]float64, len(rates))
	copy(out, rates)
	return out
}

// Meals returns the daily meal range for l. Unknown labels use T3.
func Meals(l Label) MealRange {
	r, ok := mealRanges[l]
	if !ok {
		return mealRanges[T3]
	}
	return r
}
