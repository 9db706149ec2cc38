package satellite

// MetersPerDegree converts the AOI radius into degrees of lat/lon.
const MetersPerDegree = 111320.0

const crsWGS84 = "http://www.opengis.net/def/crs/EPSG/0/4326"

// Band order of the evalscript output.
const (
	bandGreen = iota
	bandRed
	bandNIR
	bandSWIR
	bandSCL
	bandCount
)

// evalscript returns raw reflectances plus the scene classification so the
// indices are computed here, through the indices package.
const evalscript = `//VERSION=3
function setup() {
  return {
    input: [{
      bands: ["B03", "B04", "B08", "B11", "SCL"],
      units: ["REFLECTANCE", "REFLECTANCE", "REFLECTANCE", "REFLECTANCE", "DN"]
    }],
    output: { bands: 5, sampleType: "FLOAT32" }
  };
}
function evaluatePixel(s) {
  return [s.B03, s.B04, s.B08, s.B11, s.SCL];
}
`

// BBox returns [minLon, minLat, maxLon, maxLat] around the point.
func BBox(lat, lon, radiusM float64) [4]float64 {
	d := radiusM / MetersPerDegree
	return [4]float64{lon - d, lat - d, lon + d, lat + d}
}

type processRequest struct {
	Input      processInput  `json:"input"`
	Output     processOutput `json:"output"`
	Evalscript string        `json:"evalscript"`
}

type processInput struct {
	Bounds bounds       `json:"bounds"`
	Data   []dataSource `json:"data"`
}

type bounds struct {
	BBox       [4]float64 `json:"bbox"`
	Properties struct {
		CRS string `json:"crs"`
	} `json:"properties"`
}

type dataSource struct {
	Type       string     `json:"type"`
	DataFilter dataFilter `json:"dataFilter"`
}

type dataFilter struct {
	TimeRange struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"timeRange"`
	MosaickingOrder  string `json:"mosaickingOrder"`
	MaxCloudCoverage int    `json:"maxCloudCoverage,omitempty"`
}

type processOutput struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Responses []outputResponse `json:"responses"`
}

type outputResponse struct {
	Identifier string `json:"identifier"`
	Format     struct {
		Type string `json:"type"`
	} `json:"format"`
}
