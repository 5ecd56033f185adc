package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/OneBusAway/go-gtfs"
	"stopmatcher.onebusaway.org/internal/matching"
)

// GTFSImporter reads stops and stations from a static GTFS zip. Modes and
// lines come from the routes whose trips call at the stop.
type GTFSImporter struct {
	UseStopCode bool
}

func (g GTFSImporter) Import(ctx context.Context, r io.Reader) ([]matching.Stop, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return g.convert(staticData), nil
}

type stopService struct {
	modes  []matching.Mode
	lines  []string
	routes map[string]struct{}
}

func (g GTFSImporter) convert(staticData *gtfs.Static) []matching.Stop {
	served := make(map[string]*stopService)
	for i := range staticData.Trips {
		trip := &staticData.Trips[i]
		if trip.Route == nil {
			continue
		}
		for _, st := range trip.StopTimes {
			if st.Stop == nil {
				continue
			}
			ids := []string{st.Stop.Id}
			if st.Stop.Parent != nil {
				ids = append(ids, st.Stop.Parent.Id)
			}
			for _, id := range ids {
				svc := served[id]
				if svc == nil {
					svc = &stopService{routes: make(map[string]struct{})}
					served[id] = svc
				}
				if _, ok := svc.routes[trip.Route.Id]; ok {
					continue
				}
				svc.routes[trip.Route.Id] = struct{}{}
				svc.modes = append(svc.modes, routeTypeMode(int(trip.Route.Type)))
				if trip.Route.ShortName != "" {
					svc.lines = append(svc.lines, trip.Route.ShortName)
				}
			}
		}
	}

	stops := make([]matching.Stop, 0, len(staticData.Stops))
	for i := range staticData.Stops {
		s := &staticData.Stops[i]
		switch s.Type {
		case gtfs.StopType_EntranceOrExit, gtfs.StopType_GenericNode, gtfs.StopType_BoardingArea:
			continue
		}
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}

		stop := matching.Stop{
			ID:            s.Id,
			Name:          s.Name,
			Lat:           *s.Latitude,
			Lon:           *s.Longitude,
			ReferenceCode: s.Id,
		}
		if g.UseStopCode {
			stop.ReferenceCode = s.Code
		}
		if svc := served[s.Id]; svc != nil {
			stop.Mode = combineModes(svc.modes)
			stop.Lines = normalizeLines(svc.lines)
		}
		stops = append(stops, stop)
	}
	return stops
}
