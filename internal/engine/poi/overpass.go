package poi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akshu187/smartsafe/internal/shared/geo"

	"github.com/go-resty/resty/v2"
)

// OverpassClient queries an Overpass interpreter for schools, hospitals,
// places of worship and markets around a position.
type OverpassClient struct {
	client *resty.Client
	url    string
}

func NewOverpassClient(url string) *OverpassClient {
	return &OverpassClient{
		client: resty.New().SetTimeout(overpassTimeout),
		url:    url,
	}
}

// Matches the [timeout:25] in the query itself.
const overpassTimeout = 25 * time.Second

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c *OverpassClient) Nearby(ctx context.Context, lat, lng float64, radiusM int) ([]POI, error) {
	query := buildQuery(lat, lng, radiusM)

	var out overpassResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("data", query).
		SetResult(&out).
		Get(c.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("overpass: unexpected status %d", resp.StatusCode())
	}

	pois := make([]POI, 0, len(out.Elements))
	for _, el := range out.Elements {
		elLat, elLng := el.Lat, el.Lon
		if elLat == 0 && elLng == 0 && el.Center != nil {
			elLat, elLng = el.Center.Lat, el.Center.Lon
		}
		if elLat == 0 && elLng == 0 {
			continue
		}

		typ := classifyTags(el.Tags)
		pois = append(pois, POI{
			ID:        strconv.FormatInt(el.ID, 10),
			Type:      typ,
			Name:      displayName(el.Tags, typ),
			Lat:       elLat,
			Lng:       elLng,
			DistanceM: geo.HaversineM(lat, lng, elLat, elLng),
		})
	}
	return pois, nil
}

func buildQuery(lat, lng float64, radiusM int) string {
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusM, lat, lng)
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];(")
	for _, selector := range []string{
		`node["amenity"="school"]`,
		`node["amenity"="hospital"]`,
		`node["amenity"="clinic"]`,
		`node["amenity"="place_of_worship"]`,
		`node["shop"="mall"]`,
		`way["amenity"="school"]`,
		`way["amenity"="hospital"]`,
		`way["amenity"="place_of_worship"]`,
	} {
		b.WriteString(selector)
		b.WriteString(around)
		b.WriteString(";")
	}
	b.WriteString(");out center;")
	return b.String()
}

func classifyTags(tags map[string]string) Type {
	switch tags["amenity"] {
	case "school":
		return TypeSchool
	case "hospital", "clinic":
		return TypeHospital
	case "place_of_worship":
		return TypeReligious
	default:
		return TypeMarket
	}
}

func displayName(tags map[string]string, typ Type) string {
	if name := tags["name"]; name != "" {
		return name
	}
	if name := tags["name:en"]; name != "" {
		return name
	}
	return strings.ToUpper(string(typ[:1])) + string(typ[1:])
}
