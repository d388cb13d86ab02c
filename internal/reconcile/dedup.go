package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"tripnav/internal/model"
)

// dedupBy keeps the first occurrence of every item; an item is a duplicate
// when any of its keys was already produced by an earlier kept item.
func dedupBy[T any](items []T, keys func(T) []string) (kept []T, dropped []T) {
	seen := map[string]struct{}{}
	kept = make([]T, 0, len(items))
	for _, it := range items {
		ks := keys(it)
		dup := false
		for _, k := range ks {
			if _, ok := seen[k]; ok {
				dup = true
				break
			}
		}
		if dup {
			dropped = append(dropped, it)
			continue
		}
		for _, k := range ks {
			seen[k] = struct{}{}
		}
		kept = append(kept, it)
	}
	return kept, dropped
}

// NormalizeTitle lowercases and trims a title for identity comparison.
func NormalizeTitle(t string) string { return strings.ToLower(strings.TrimSpace(t)) }

// PlaceKey is the secondary identity of a place: title plus coordinates at
// six decimals.
func PlaceKey(title string, lat, lon float64) string {
	return NormalizeTitle(title) + "|" + strconv.FormatFloat(lat, 'f', 6, 64) + "|" + strconv.FormatFloat(lon, 'f', 6, 64)
}

func pointKeys(id, title string, lat, lon float64) []string {
	keys := make([]string, 0, 2)
	if id != "" {
		keys = append(keys, "id:"+id)
	}
	return append(keys, "place:"+PlaceKey(title, lat, lon))
}

// DedupPoints collapses route points sharing an id or a place key,
// preserving first-seen order.
func DedupPoints(points []model.RoutePoint) []model.RoutePoint {
	kept, _ := dedupBy(points, func(p model.RoutePoint) []string {
		return pointKeys(p.ID, p.Title, p.Lat, p.Lon)
	})
	return kept
}

// RouteKey is the coarse route identity: title and point count. Distinct
// routes can collide on it.
func RouteKey(r model.StoredRoute) string {
	return fmt.Sprintf("%s_%d", r.Title, r.PointCount())
}

// DedupRoutes collapses routes sharing a RouteKey, preserving first-seen order.
func DedupRoutes(routes []model.StoredRoute) []model.StoredRoute {
	kept, _ := dedupBy(routes, func(r model.StoredRoute) []string {
		return []string{RouteKey(r)}
	})
	return kept
}

// FavoriteDuplicates reports duplicates among favorites using the point keys.
func FavoriteDuplicates(favs []model.Favorite) model.DuplicateReport {
	_, dropped := dedupBy(favs, func(f model.Favorite) []string {
		return pointKeys(f.ID, f.Title, f.Lat, f.Lon)
	})
	rep := model.DuplicateReport{
		Duplicates:  len(dropped),
		Total:       len(favs),
		UniqueCount: len(favs) - len(dropped),
	}
	rep.HasDuplicates = rep.Duplicates > 0
	for _, f := range dropped {
		rep.DuplicateIDs = append(rep.DuplicateIDs, f.ID)
	}
	return rep
}
