package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ReportTitle = "FieldFusion Report"

// Report is a persisted analysis, owned by the user who requested it.
type Report struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID `bson:"ownerId"       json:"owner_id"`
	Title     string             `bson:"title"         json:"title"`
	Request   AnalysisRequest    `bson:"request"       json:"request"`
	Indices   IndicesSnapshot    `bson:"indices"       json:"indices"`
	Weather   WeatherSummary     `bson:"weather"       json:"weather"`
	Soil      RiskAssessment     `bson:"soil"          json:"soil"`
	Crop      RiskAssessment     `bson:"crop"          json:"crop"`
	Pest      RiskAssessment     `bson:"pest"          json:"pest"`
	ImageSize *int               `bson:"imageSize,omitempty" json:"image_size,omitempty"` // bytes of the uploaded photo
	CreatedAt time.Time          `bson:"createdAt"     json:"created_at"`
}
