// Package seed generates synthetic trip cost data used to bootstrap the cost
// model before real expense reports exist, and reads and writes the seed file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/tripcost/internal/fare"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/money"
	"github.com/Veraticus/tripcost/internal/tier"
)

// DefaultTrips is the number of trips generated when no count is given.
const DefaultTrips = 75

// Duration bounds in days, inclusive.
const (
	MinDurationDays = 1
	MaxDurationDays = 5
)

// hotelJitter is the maximum relative perturbation applied to sampled hotel rates.
const hotelJitter = 0.05

// ErrTooFewCities is returned when origin and destination cannot differ.
var ErrTooFewCities = errors.New("seed generation needs at least two cities")

// Estimator prices the journey between two cities.
type Estimator interface {
	Estimate(ctx context.Context, origin, dest string) (distanceKm, ticketCost float64, err error)
}

// Generator produces synthetic trips.
type Generator struct {
	estimator Estimator
	rng       *rand.Rand
	progress  io.Writer
	logger    *slog.Logger
	cities    []string
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source, making output reproducible.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithSeed is shorthand for WithRand over a PCG source.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithCities overrides the pool origins and destinations are drawn from.
func WithCities(cities []string) Option {
	return func(g *Generator) { g.cities = cities }
}

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(g *Generator) { g.progress = w }
}

// WithLogger sets the logger used for skipped trips.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator drawing from all tiered cities.
func NewGenerator(estimator Estimator, opts ...Option) *Generator {
	g := &Generator{
		estimator: estimator,
		cities:    tier.Cities(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g.cities = distinct(g.cities)
	return g
}

// distinct drops blank and repeated names, keeping first-seen order.
func distinct(cities []string) []string {
	seen := make(map[string]struct{}, len(cities))
	out := make([]string, 0, len(cities))
	for _, city := range cities {
		city = strings.TrimSpace(city)
		if city == "" {
			continue
		}
		if _, ok := seen[city]; ok {
			continue
		}
		seen[city] = struct{}{}
		out = append(out, city)
	}
	return out
}

// Generate returns up to n synthetic trips. Trips whose cities cannot be
// geocoded are skipped, so fewer than n rows may come back.
func (g *Generator) Generate(ctx context.Context, n int) ([]model.SeedTrip, error) {
	if len(g.cities) < 2 {
		return nil, ErrTooFewCities
	}
	if n <= 0 {
		return nil, nil
	}

	var bar *progressbar.ProgressBar
	if g.progress != nil {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetWriter(g.progress),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Generating seed trips"),
			progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(g.progress) }),
		)
	}

	trips := make([]model.SeedTrip, 0, n)
	skipped := 0

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		trip, err := g.one(ctx)
		if err != nil {
			var notResolved *fare.CityNotResolvedError
			if errors.As(err, &notResolved) {
				skipped++
				g.logger.Warn("Skipping seed trip",
					"origin", trip.OriginCity,
					"destination", trip.DestCity,
					"error", err)
				continue
			}
			return nil, fmt.Errorf("failed to generate seed trip: %w", err)
		}
		trips = append(trips, trip)
	}

	g.logger.Info("Generated seed trips", "requested", n, "generated", len(trips), "skipped", skipped)
	return trips, nil
}

func (g *Generator) one(ctx context.Context) (model.SeedTrip, error) {
	origin := g.pick()
	dest := g.pick()
	for dest == origin {
		dest = g.pick()
	}

	duration := MinDurationDays + g.rng.IntN(MaxDurationDays-MinDurationDays+1)
	label := tier.Of(dest)

	rates := tier.HotelRates(label)
	nightly := rates[g.rng.IntN(len(rates))]
	nightly *= g.uniform(1-hotelJitter, 1+hotelJitter)
	hotelCost := money.Round2(nightly * float64(duration))

	meals := tier.Meals(label)
	mealsPerDay := money.Round2(g.uniform(meals.Min, meals.Max))
	mealsCost := money.Round2(mealsPerDay * float64(duration))

	trip := model.SeedTrip{
		OriginCity:   origin,
		DestCity:     dest,
		Tier:         label,
		DurationDays: duration,
		HotelCost:    hotelCost,
		MealsPerDay:  mealsPerDay,
		MealsCost:    mealsCost,
	}

	distance, ticket, err := g.estimator.Estimate(ctx, origin, dest)
	if err != nil {
		return trip, err
	}

	trip.DistanceKm = money.Round2(distance)
	trip.TicketCost = money.Round2(ticket)
	trip.TotalCost = money.Round2(hotelCost + mealsCost + ticket)
	return trip, nil
}

func (g *Generator) pick() string {
	return g.cities[g.rng.IntN(len(g.cities))]
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}

// ToObservations converts generated trips into training rows tagged as seed data.
func ToObservations(trips []model.SeedTrip) []model.TripObservation {
	out := make([]model.TripObservation, len(trips))
	for i, trip := range trips {
		out[i] = trip.Observation()
	}
	return out
}
