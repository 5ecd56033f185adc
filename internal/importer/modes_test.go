package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"stopmatcher.onebusaway.org/internal/matching"
)

func TestFPTFMode(t *testing.T) {
	tests := []struct {
		name     string
		products map[string]bool
		expected matching.Mode
	}{
		{"no products", nil, matching.ModeUnknown},
		{"all false", map[string]bool{"bus": false, "tram": false}, matching.ModeUnknown},
		{"bus only", map[string]bool{"bus": true}, matching.ModeBus},
		{"ferry only", map[string]bool{"ferry": true}, matching.ModeFerry},
		{"tram only stays unknown", map[string]bool{"tram": true}, matching.ModeUnknown},
		{"suburban only", map[string]bool{"suburban": true}, matching.ModeTrainish},
		{"several rail products", map[string]bool{"national": true, "regional": true, "suburban": true}, matching.ModeTrainish},
		{"bus with rail is ambiguous", map[string]bool{"bus": true, "regional": true}, matching.ModeUnknown},
		{"bus with tram is ambiguous", map[string]bool{"bus": true, "tram": true}, matching.ModeUnknown},
		{"subway with tram", map[string]bool{"subway": true, "tram": true}, matching.ModeTrainish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fptfMode(tt.products))
		})
	}
}

func TestCombineModes(t *testing.T) {
	tests := []struct {
		name     string
		modes    []matching.Mode
		expected matching.Mode
	}{
		{"none", nil, matching.ModeUnknown},
		{"single", []matching.Mode{matching.ModeTram}, matching.ModeTram},
		{"repeated", []matching.Mode{matching.ModeBus, matching.ModeBus}, matching.ModeBus},
		{"unknown ignored", []matching.Mode{matching.ModeUnknown, matching.ModeFerry}, matching.ModeFerry},
		{"bus and tram", []matching.Mode{matching.ModeTram, matching.ModeBus}, matching.ModeUnknown},
		{"tram and rail", []matching.Mode{matching.ModeTram, matching.ModeTrainish}, matching.ModeTrainish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, combineModes(tt.modes))
		})
	}
}

func TestRouteTypeMode(t *testing.T) {
	tests := []struct {
		routeType int
		expected  matching.Mode
	}{
		{0, matching.ModeTram},
		{1, matching.ModeTrainish},
		{2, matching.ModeTrainish},
		{3, matching.ModeBus},
		{4, matching.ModeFerry},
		{6, matching.ModeUnknown},
		{11, matching.ModeBus},
		{109, matching.ModeTrainish},
		{700, matching.ModeBus},
		{900, matching.ModeTram},
		{1000, matching.ModeFerry},
		{1400, matching.ModeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, routeTypeMode(tt.routeType), "route type %d", tt.routeType)
	}
}

func TestOSMMode(t *testing.T) {
	tests := []struct {
		name     string
		tags     map[string]string
		expected matching.Mode
	}{
		{"bus stop", map[string]string{"highway": "bus_stop"}, matching.ModeBus},
		{"light rail platform", map[string]string{"light_rail": "yes"}, matching.ModeTrainish},
		{"tram stop", map[string]string{"railway": "tram_stop"}, matching.ModeTram},
		{"ferry terminal", map[string]string{"amenity": "ferry_terminal"}, matching.ModeFerry},
		{"shared bus and tram platform", map[string]string{"bus": "yes", "tram": "yes"}, matching.ModeUnknown},
		{"untagged", map[string]string{"name": "x"}, matching.ModeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, osmMode(tt.tags))
		})
	}
}
