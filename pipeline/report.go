package pipeline

import (
	"time"

	"fieldfusion/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BuildReport turns a finished analysis into the document persisted for owner.
func BuildReport(owner primitive.ObjectID, req models.AnalysisRequest, an *Analysis, now time.Time) models.Report {
	r := models.Report{
		OwnerID:   owner,
		Title:     models.ReportTitle,
		Request:   req,
		Indices:   an.Response.Indices,
		Weather:   an.Response.Weather,
		Soil:      an.Response.Soil,
		Crop:      an.Response.Crop,
		Pest:      an.Response.Pest,
		CreatedAt: now.UTC(),
	}
	if an.Image != nil {
		n := an.Image.Bytes
		r.ImageSize = &n
	}
	return r
}
