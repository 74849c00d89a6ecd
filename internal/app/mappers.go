package app

import (
	"math"
	"strconv"
	"strings"

	"hotel_finder/internal/domain"
)

/********** field paths (single source of truth) **********/

const (
	pathID       = "id"
	pathName     = "name"
	pathPrice    = "price.lead.formatted"
	pathDistance = "destinationInfo.distanceFromDestination.value"
	pathScore    = "reviews.score"

	pathGallery = "data.propertyInfo.propertyGallery.images"
	pathAddress = "data.propertyInfo.summary.location.address.addressLine"
	pathStars   = "data.propertyInfo.summary.overview.propertyRating.rating"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns a non-empty string at path; numbers are formatted.
func lookupStr(m map[string]any, path string) (string, bool) {
	switch v := lookupAny(m, path).(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

// lookupFloat: finite number at path (float64 or string like "8,0").
func lookupFloat(m map[string]any, path string) (float64, bool) {
	switch v := lookupAny(m, path).(type) {
	case float64:
		return v, finite(v)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && finite(f)
	}
	return 0, false
}

// finite rejects NaN and infinities, which ParseFloat accepts and encoding/json cannot write.
func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

/********** record mapper **********/

// extractHotel maps one provider record; any missing required field is a MalformedRecordError.
func extractHotel(r domain.RawHotelRecord) (domain.HotelInfo, error) {
	m := map[string]any(r)
	id, ok := lookupStr(m, pathID)
	if !ok {
		return domain.HotelInfo{}, &domain.MalformedRecordError{Field: pathID}
	}
	name, ok := lookupStr(m, pathName)
	if !ok {
		return domain.HotelInfo{}, &domain.MalformedRecordError{Field: pathName}
	}
	price, ok := lookupStr(m, pathPrice)
	if !ok {
		return domain.HotelInfo{}, &domain.MalformedRecordError{Field: pathPrice}
	}
	dist, ok := lookupFloat(m, pathDistance)
	if !ok || dist < 0 {
		return domain.HotelInfo{}, &domain.MalformedRecordError{Field: pathDistance}
	}
	score, ok := lookupFloat(m, pathScore)
	if !ok {
		return domain.HotelInfo{}, &domain.MalformedRecordError{Field: pathScore}
	}
	return domain.HotelInfo{
		ID:          id,
		Name:        name,
		DistanceKm:  dist,
		Price:       price,
		ReviewScore: score,
		Address:     domain.Unknown,
		StarRating:  domain.Unknown,
		Images:      []string{},
	}, nil
}

/********** detail mapper **********/

// galleryURLs: images[].image.url, skipping entries without a url.
func galleryURLs(d domain.RawDetail) []string {
	raw, ok := lookupAny(d, pathGallery).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if u, ok := lookupStr(obj, "image.url"); ok {
			out = append(out, u)
		}
	}
	return out
}

// applyDetail fills the optional fields the list endpoint never returns.
func applyDetail(h *domain.HotelInfo, d domain.RawDetail) {
	if s, ok := lookupStr(d, pathAddress); ok {
		h.Address = s
	}
	if s, ok := lookupStr(d, pathStars); ok {
		h.StarRating = s
	}
}
