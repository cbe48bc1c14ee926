package models

import "encoding/json"

// Station represents a named kitchen preparation area
type Station struct {
	StationID   string  `json:"station_id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	CurrentLoad int     `json:"current_load"`
	MaxCapacity int     `json:"max_capacity"`
	AvgCookTime float64 `json:"avg_cook_time"`
}

type looseStation struct {
	StationID    string      `json:"station_id"`
	AltStationID string      `json:"stationId"`
	ID           looseString `json:"id"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	CurrentLoad  looseInt    `json:"current_load"`
	MaxCapacity  looseInt    `json:"max_capacity"`
	AvgCookTime  float64     `json:"avg_cook_time"`
}

// UnmarshalJSON accepts the station id under station_id, stationId or id --
// backend versions disagree on the casing.
func (s *Station) UnmarshalJSON(data []byte) error {
	var loose looseStation
	if err := json.Unmarshal(data, &loose); err != nil {
		return err
	}
	*s = Station{
		StationID:   firstNonEmpty(loose.StationID, loose.AltStationID, string(loose.ID)),
		Name:        loose.Name,
		Type:        loose.Type,
		CurrentLoad: int(loose.CurrentLoad),
		MaxCapacity: int(loose.MaxCapacity),
		AvgCookTime: loose.AvgCookTime,
	}
	return nil
}
