package importer

import "stopmatcher.onebusaway.org/internal/matching"

// combineModes folds the modes serving one stop. Mixed bus and rail service
// is ambiguous and yields unknown; any other mix involving rail is trainish.
func combineModes(modes []matching.Mode) matching.Mode {
	var first matching.Mode
	for _, m := range modes {
		if !m.Known() || m == first {
			continue
		}
		if first == matching.ModeUnknown {
			first = m
			continue
		}
		if first == matching.ModeBus || m == matching.ModeBus {
			return matching.ModeUnknown
		}
		return matching.ModeTrainish
	}
	return first
}

// fptfProducts is ordered; the first product present decides ties.
var fptfProducts = []string{
	"bus",
	"nationalExpress",
	"regionalExpress",
	"national",
	"regional",
	"suburban",
	"subway",
	"tram",
	"ferry",
}

// fptfMode derives a mode from an FPTF products object. HAFAS tram cannot be
// told apart from light rail, so a tram-only station stays unknown.
func fptfMode(products map[string]bool) matching.Mode {
	first := ""
	for _, key := range fptfProducts {
		if !products[key] {
			continue
		}
		if first != "" {
			if first == "bus" {
				return matching.ModeUnknown
			}
			return matching.ModeTrainish
		}
		first = key
	}

	switch first {
	case "":
		return matching.ModeUnknown
	case "bus":
		return matching.ModeBus
	case "ferry":
		return matching.ModeFerry
	case "tram":
		return matching.ModeUnknown
	default:
		return matching.ModeTrainish
	}
}

// routeTypeMode maps basic and extended GTFS route types.
func routeTypeMode(routeType int) matching.Mode {
	switch {
	case routeType == 0:
		return matching.ModeTram
	case routeType == 1, routeType == 2, routeType == 12:
		return matching.ModeTrainish
	case routeType == 3, routeType == 11:
		return matching.ModeBus
	case routeType == 4:
		return matching.ModeFerry
	case routeType >= 100 && routeType < 200:
		return matching.ModeTrainish
	case routeType >= 200 && routeType < 300:
		return matching.ModeBus
	case routeType >= 400 && routeType < 500:
		return matching.ModeTrainish
	case routeType >= 700 && routeType < 900:
		return matching.ModeBus
	case routeType >= 900 && routeType < 1000:
		return matching.ModeTram
	case routeType >= 1000 && routeType < 1100, routeType == 1200:
		return matching.ModeFerry
	default:
		return matching.ModeUnknown
	}
}

// osmMode derives a mode from OSM public transport tags.
func osmMode(tags map[string]string) matching.Mode {
	var modes []matching.Mode
	if tags["bus"] == "yes" || tags["highway"] == "bus_stop" || tags["trolleybus"] == "yes" {
		modes = append(modes, matching.ModeBus)
	}
	if tags["train"] == "yes" || tags["light_rail"] == "yes" || tags["subway"] == "yes" ||
		tags["railway"] == "halt" || tags["railway"] == "station" {
		modes = append(modes, matching.ModeTrainish)
	}
	if tags["tram"] == "yes" || tags["railway"] == "tram_stop" {
		modes = append(modes, matching.ModeTram)
	}
	if tags["ferry"] == "yes" || tags["amenity"] == "ferry_terminal" {
		modes = append(modes, matching.ModeFerry)
	}
	return combineModes(modes)
}
