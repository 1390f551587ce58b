package pointset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "longitude,latitude,population\n-70.1,43.2,1500\n-70.2,43.3,2500\n")

	points, err := LoadCSV(path, "population")
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, 0, points[0].Index)
	assert.InDelta(t, -70.1, points[0].Lon, 1e-9)
	assert.InDelta(t, 43.2, points[0].Lat, 1e-9)
	assert.InDelta(t, 1500, points[0].Label, 1e-9)
	assert.Equal(t, 1, points[1].Index)
}

func TestLoadCSVShortNames(t *testing.T) {
	path := writeCSV(t, "lon,lat,pop\n1.5,2.5,10\n")

	points, err := LoadCSV(path, "pop")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 1.5, points[0].Lon, 1e-9)
}

func TestLoadCSVMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no coordinates", "a,b,population\n1,2,3\n"},
		{"no label", "longitude,latitude,other\n1,2,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(writeCSV(t, tt.content), "population")
			assert.Error(t, err)
		})
	}
}

func TestLoadCSVBadValue(t *testing.T) {
	path := writeCSV(t, "longitude,latitude,population\n-70.1,not-a-number,1500\n")
	_, err := LoadCSV(path, "population")
	assert.Error(t, err)
}

func TestLoadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.FloatField("POP", 16, 4)}))

	coords := [][2]float64{{-70.1, 43.2}, {-70.2, 43.3}, {-70.3, 43.4}}
	for i, c := range coords {
		w.Write(&shp.Point{X: c[0], Y: c[1]})
		require.NoError(t, w.WriteAttribute(i, 0, float64(100*(i+1))))
	}
	w.Close()

	points, err := LoadShapefile(path, "POP")
	require.NoError(t, err)
	require.Len(t, points, 3)

	for i, p := range points {
		assert.Equal(t, i, p.Index)
		assert.InDelta(t, coords[i][0], p.Lon, 1e-9)
		assert.InDelta(t, coords[i][1], p.Lat, 1e-9)
		assert.InDelta(t, float64(100*(i+1)), p.Label, 1e-3)
	}
}

func TestLoadShapefileMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.FloatField("POP", 16, 4)}))
	w.Write(&shp.Point{X: 1, Y: 2})
	require.NoError(t, w.WriteAttribute(0, 0, 1.0))
	w.Close()

	_, err = LoadShapefile(path, "DENSITY")
	assert.Error(t, err)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	csvPath := writeCSV(t, "longitude,latitude,population\n0,0,1\n")
	points, err := Load(csvPath, "population")
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestLabels(t *testing.T) {
	path := writeCSV(t, "longitude,latitude,population\n0,0,5\n1,1,6\n")
	points, err := LoadCSV(path, "population")
	require.NoError(t, err)

	labels := Labels(points)
	assert.Equal(t, []float64{5, 6}, labels)
}
