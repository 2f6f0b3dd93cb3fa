package geo

import (
	"context"

	"github.com/Veraticus/tripcost/internal/model"
)

// builtinCoords covers every tiered city so seed generation works offline.
var builtinCoords = map[string]model.Coordinates{
	// T1
	"Zurich":        {Lat: 47.3769, Lon: 8.5417},
	"Geneva":        {Lat: 46.2044, Lon: 6.1432},
	"Basel":         {Lat: 47.5596, Lon: 7.5886},
	"Lausanne":      {Lat: 46.5197, Lon: 6.6323},
	"Zermatt":       {Lat: 46.0207, Lon: 7.7491},
	"St. Moritz":    {Lat: 46.4908, Lon: 9.8355},
	"Davos":         {Lat: 46.8027, Lon: 9.8360},
	"Klosters":      {Lat: 46.8696, Lon: 9.8800},
	"Verbier":       {Lat: 46.0961, Lon: 7.2286},
	"Gstaad":        {Lat: 46.4750, Lon: 7.2861},
	"Andermatt":     {Lat: 46.6356, Lon: 8.5939},
	"Grindelwald":   {Lat: 46.6242, Lon: 8.0414},
	"Wengen":        {Lat: 46.6083, Lon: 7.9225},
	"Mürren":        {Lat: 46.5590, Lon: 7.8924},
	"Saas-Fee":      {Lat: 46.1085, Lon: 7.9280},
	"Arosa":         {Lat: 46.7783, Lon: 9.6788},
	"Lenzerheide":   {Lat: 46.7284, Lon: 9.5574},
	"Flims":         {Lat: 46.8367, Lon: 9.2840},
	"Laax":          {Lat: 46.8069, Lon: 9.2580},
	"Engelberg":     {Lat: 46.8196, Lon: 8.4066},
	"Crans-Montana": {Lat: 46.3072, Lon: 7.4814},
	"Montreux":      {Lat: 46.4312, Lon: 6.9107},
	"Lucerne":       {Lat: 47.0502, Lon: 8.3093},
	"Ascona":        {Lat: 46.1570, Lon: 8.7717},
	"Zug":           {Lat: 47.1662, Lon: 8.5155},

	// T2
	"Bern":         {Lat: 46.9480, Lon: 7.4474},
	"Winterthur":   {Lat: 47.4988, Lon: 8.7237},
	"St. Gallen":   {Lat: 47.4245, Lon: 9.3767},
	"Biel":         {Lat: 47.1368, Lon: 7.2468},
	"Schaffhausen": {Lat: 47.6973, Lon: 8.6349},
	"Chur":         {Lat: 46.8508, Lon: 9.5320},
	"Thun":         {Lat: 46.7580, Lon: 7.6280},
	"Neuchâtel":    {Lat: 46.9900, Lon: 6.9293},
	"Fribourg":     {Lat: 46.8065, Lon: 7.1619},
	"Sion":         {Lat: 46.2331, Lon: 7.3606},
	"Brig":         {Lat: 46.3159, Lon: 7.9877},
	"Bellinzona":   {Lat: 46.1955, Lon: 9.0238},
	"Interlaken":   {Lat: 46.6863, Lon: 7.8632},
	"Kloten":       {Lat: 47.4515, Lon: 8.5849},
	"Lugano":       {Lat: 46.0037, Lon: 8.9511},
	"Locarno":      {Lat: 46.1709, Lon: 8.7995},

	// T3
	"Solothurn":         {Lat: 47.2088, Lon: 7.5323},
	"Olten":             {Lat: 47.3500, Lon: 7.9033},
	"Rapperswil":        {Lat: 47.2266, Lon: 8.8184},
	"Uster":             {Lat: 47.3471, Lon: 8.7209},
	"Baden":             {Lat: 47.4733, Lon: 8.3059},
	"Wil":               {Lat: 47.4615, Lon: 9.0455},
	"Arbon":             {Lat: 47.5167, Lon: 9.4333},
	"Romanshorn":        {Lat: 47.5656, Lon: 9.3787},
	"Spiez":             {Lat: 46.6856, Lon: 7.6800},
	"Steffisburg":       {Lat: 46.7781, Lon: 7.6327},
	"Villars-sur-Glâne": {Lat: 46.7908, Lon: 7.1172},
	"Pfäffikon":         {Lat: 47.2010, Lon: 8.7780},
	"Wetzikon":          {Lat: 47.3266, Lon: 8.7977},
}

// StaticGeocoder answers lookups from an in-memory table.
type StaticGeocoder struct {
	coords map[string]model.Coordinates
}

// NewStaticGeocoder returns a geocoder over the built-in Swiss city table
// plus any extra entries, which take precedence.
func NewStaticGeocoder(extra map[string]model.Coordinates) *StaticGeocoder {
	coords := make(map[string]model.Coordinates, len(builtinCoords)+len(extra))
	for city, c := range builtinCoords {
		coords[city] = c
	}
	for city, c := range extra {
		coords[city] = c
	}
	return &StaticGeocoder{coords: coords}
}

// Coords looks the city up by exact name.
func (g *StaticGeocoder) Coords(_ context.Context, city string) (model.Coordinates, bool, error) {
	c, ok := g.coords[city]
	return c, ok, nil
}
