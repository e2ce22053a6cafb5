package logsrepo

import (
	"encoding/json"
	"time"

	"github.com/jrazmi/growlog/core/models"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// Log is the main entity type.
type Log = models.Log

// CreateLog contains fields for creating a new log entry.
type CreateLog struct {
	ID          *string         `json:"id,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
	Type        *schema.LogType `json:"type,omitempty"`
	Stage       *schema.Stage   `json:"stage,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Humidity    *float64        `json:"humidity,omitempty"`
	PH          *float64        `json:"ph,omitempty"`
	EC          *float64        `json:"ec,omitempty"`
	PAR         *float64        `json:"par,omitempty"`
	WaterAmount *float64        `json:"waterAmount,omitempty"`
	Nutrients   []string        `json:"nutrients,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	PlantID     string          `json:"plantId"`
	UserID      string          `json:"userId"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Row returns the create data by field name.
func (c CreateLog) Row() repositories.Row {
	r := repositories.Row{"plantId": c.PlantID, "userId": c.UserID}
	repositories.Put(r, "id", c.ID)
	repositories.Put(r, "date", c.Date)
	repositories.Put(r, "type", c.Type)
	repositories.Put(r, "stage", c.Stage)
	repositories.Put(r, "temperature", c.Temperature)
	repositories.Put(r, "humidity", c.Humidity)
	repositories.Put(r, "ph", c.PH)
	repositories.Put(r, "ec", c.EC)
	repositories.Put(r, "par", c.PAR)
	repositories.Put(r, "waterAmount", c.WaterAmount)
	if c.Nutrients != nil {
		r["nutrients"] = c.Nutrients
	}
	repositories.Put(r, "notes", c.Notes)
	repositories.Put(r, "imageUrl", c.ImageURL)
	repositories.Put(r, "createdAt", c.CreatedAt)
	repositories.Put(r, "updatedAt", c.UpdatedAt)
	if c.Data != nil {
		r["data"] = c.Data
	}
	return r
}

// UpdateLog contains fields for updating an existing log entry.
type UpdateLog struct {
	Date        *time.Time                    `json:"date,omitempty"`
	Type        *schema.LogType               `json:"type,omitempty"`
	Stage       *schema.Stage                 `json:"stage,omitempty"`
	Temperature fop.Optional[float64]         `json:"temperature"`
	Humidity    fop.Optional[float64]         `json:"humidity"`
	PH          fop.Optional[float64]         `json:"ph"`
	EC          fop.Optional[float64]         `json:"ec"`
	PAR         fop.Optional[float64]         `json:"par"`
	WaterAmount fop.Optional[float64]         `json:"waterAmount"`
	Nutrients   *[]string                     `json:"nutrients,omitempty"`
	Notes       fop.Optional[string]          `json:"notes"`
	ImageURL    fop.Optional[string]          `json:"imageUrl"`
	PlantID     *string                       `json:"plantId,omitempty"`
	UserID      *string                       `json:"userId,omitempty"`
	UpdatedAt   *time.Time                    `json:"updatedAt,omitempty"`
	Data        fop.Optional[json.RawMessage] `json:"data"`
}

// Row returns the update data by field name.
func (u UpdateLog) Row() repositories.Row {
	r := repositories.Row{}
	repositories.Put(r, "date", u.Date)
	repositories.Put(r, "type", u.Type)
	repositories.Put(r, "stage", u.Stage)
	repositories.PutOptional(r, "temperature", u.Temperature)
	repositories.PutOptional(r, "humidity", u.Humidity)
	repositories.PutOptional(r, "ph", u.PH)
	repositories.PutOptional(r, "ec", u.EC)
	repositories.PutOptional(r, "par", u.PAR)
	repositories.PutOptional(r, "waterAmount", u.WaterAmount)
	repositories.Put(r, "nutrients", u.Nutrients)
	repositories.PutOptional(r, "notes", u.Notes)
	repositories.PutOptional(r, "imageUrl", u.ImageURL)
	repositories.Put(r, "plantId", u.PlantID)
	repositories.Put(r, "userId", u.UserID)
	repositories.Put(r, "updatedAt", u.UpdatedAt)
	repositories.PutOptional(r, "data", u.Data)
	return r
}
