package geo

import (
	"testing"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
	"github.com/stretchr/testify/assert"
)

func testBox() models.BoundingBox {
	return models.BoundingBox{
		SwCorner: models.Coordinate{Lat: 60.0, Lng: 24.0},
		NeCorner: models.Coordinate{Lat: 61.0, Lng: 25.0},
	}
}

func TestBoxPolygonCorners(t *testing.T) {
	polygon := BoxPolygon(testBox())

	assert.Equal(t, []models.Coordinate{
		{Lat: 60.0, Lng: 24.0},
		{Lat: 61.0, Lng: 24.0},
		{Lat: 61.0, Lng: 25.0},
		{Lat: 60.0, Lng: 25.0},
	}, polygon)
}

func TestContainsPoint(t *testing.T) {
	assert := assert.New(t)
	polygon := BoxPolygon(testBox())

	assert.True(ContainsPoint(polygon, models.Coordinate{Lat: 60.5, Lng: 24.5}))
	assert.False(ContainsPoint(polygon, models.Coordinate{Lat: 62.0, Lng: 24.5}))
	assert.False(ContainsPoint(polygon, models.Coordinate{Lat: 60.5, Lng: 23.9}))
}

func TestContainsPointBoundaryInclusive(t *testing.T) {
	assert := assert.New(t)
	polygon := BoxPolygon(testBox())

	// On an edge.
	assert.True(ContainsPoint(polygon, models.Coordinate{Lat: 60.0, Lng: 24.5}))
	assert.True(ContainsPoint(polygon, models.Coordinate{Lat: 60.5, Lng: 25.0}))

	// On a vertex.
	assert.True(ContainsPoint(polygon, models.Coordinate{Lat: 61.0, Lng: 25.0}))
}

func TestContainsPointTooFewVertices(t *testing.T) {
	polygon := []models.Coordinate{
		{Lat: 60.0, Lng: 24.0},
		{Lat: 61.0, Lng: 25.0},
	}

	assert.False(t, ContainsPoint(polygon, models.Coordinate{Lat: 60.5, Lng: 24.5}))
}
