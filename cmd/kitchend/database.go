package main

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// TicketRecord is the persisted form of a kitchen ticket.
type TicketRecord struct {
	gorm.Model
	TicketID    string `gorm:"unique_index"`
	OrderID     int
	StationID   string
	TableNumber string
	ServerName  string
	GuestCount  int
	OrderType   string
	SplitCheck  bool
	Status      string
	Priority    int
	IsVIP       bool
	ReceivedAt  time.Time
	StartedAt   *time.Time
	BumpedAt    *time.Time
	Items       []ItemRecord `gorm:"foreignkey:TicketRecordID"`
}

// ItemRecord is one line of a ticket. Allergens and modifiers are stored
// comma separated; sqlite keeps the schema flat.
type ItemRecord struct {
	gorm.Model
	TicketRecordID uint
	ItemID         string
	Name           string
	Quantity       int
	Seat           string
	Course         string
	Modifiers      string
	Notes          string
	Allergens      string
	IsVoided       bool
	VoidReason     string
	IsFired        bool
}

// StationRecord is a kitchen prep area.
type StationRecord struct {
	gorm.Model
	StationID   string `gorm:"unique_index"`
	Name        string
	Type        string
	MaxCapacity int
	AvgCookTime float64
}

// UnavailableRecord is one 86'd menu item.
type UnavailableRecord struct {
	gorm.Model
	ItemID          string `gorm:"unique_index"`
	Name            string
	Reason          string
	MarkedAt        time.Time
	EstimatedReturn *time.Time
}

func openDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.AutoMigrate(
		&TicketRecord{},
		&ItemRecord{},
		&StationRecord{},
		&UnavailableRecord{},
	)
	seedDefaultData(db)
	return db, nil
}

// seedDefaultData ensures stations and a few open tickets exist so a fresh
// database serves a believable board immediately.
func seedDefaultData(db *gorm.DB) {
	var stationCount int64
	db.Model(&StationRecord{}).Count(&stationCount)
	if stationCount == 0 {
		defaultStations := []StationRecord{
			{StationID: "grill", Name: "Grill", Type: "hot", MaxCapacity: 8, AvgCookTime: 12},
			{StationID: "saute", Name: "Saute", Type: "hot", MaxCapacity: 6, AvgCookTime: 10},
			{StationID: "cold", Name: "Garde Manger", Type: "cold", MaxCapacity: 10, AvgCookTime: 5},
			{StationID: "pastry", Name: "Pastry", Type: "dessert", MaxCapacity: 6, AvgCookTime: 8},
		}
		for _, station := range defaultStations {
			db.Create(&station)
		}
	}

	var ticketCount int64
	db.Model(&TicketRecord{}).Count(&ticketCount)
	if ticketCount == 0 {
		seedTickets(db)
	}
}

func seedTickets(db *gorm.DB) {
	now := time.Now()
	tickets := []TicketRecord{
		{
			TicketID: uuid.NewString(), OrderID: 101, StationID: "grill",
			TableNumber: "12", ServerName: "Dana", GuestCount: 4,
			OrderType: "dine_in", Status: "new", Priority: 2,
			ReceivedAt: now.Add(-3 * time.Minute),
			Items: []ItemRecord{
				{ItemID: uuid.NewString(), Name: "Ribeye", Quantity: 1, Course: "main", Notes: "Medium rare"},
				{ItemID: uuid.NewString(), Name: "Caesar Salad", Quantity: 1, Course: "appetizer", Allergens: "dairy,egg"},
			},
		},
		{
			TicketID: uuid.NewString(), OrderID: 102, StationID: "saute",
			OrderType: "takeout", Status: "in_progress", Priority: 5,
			ReceivedAt: now.Add(-9 * time.Minute),
			StartedAt:  timePtr(now.Add(-7 * time.Minute)),
			Items: []ItemRecord{
				{ItemID: uuid.NewString(), Name: "Pasta Carbonara", Quantity: 2, Course: "main", Allergens: "gluten,dairy"},
			},
		},
		{
			TicketID: uuid.NewString(), OrderID: 103, StationID: "cold",
			TableNumber: "3", OrderType: "dine_in", Status: "bumped", Priority: 1,
			ReceivedAt: now.Add(-25 * time.Minute),
			StartedAt:  timePtr(now.Add(-24 * time.Minute)),
			BumpedAt:   timePtr(now.Add(-10 * time.Minute)),
			Items: []ItemRecord{
				{ItemID: uuid.NewString(), Name: "Burrata", Quantity: 1, Course: "appetizer", Allergens: "dairy"},
			},
		},
	}

	for _, ticket := range tickets {
		db.Create(&ticket)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func splitList(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
