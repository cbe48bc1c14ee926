package views

import (
	"sort"

	"brigade/internal/models"
	"brigade/internal/store"
)

// AllDayRow accumulates quantities of one menu item across all tickets.
type AllDayRow struct {
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"in_progress"`
	Completed  int    `json:"completed"`
}

// ExpoQueue returns the tickets ready for pickup, across all stations.
func ExpoQueue(snap *store.Snapshot) []models.Ticket {
	// The backend's expo feed is authoritative when present; tickets the
	// store already knows as ready/bumped fill in when that feed is stale.
	if len(snap.ExpoTickets) > 0 || !snap.Stale(store.FeedExpo) {
		return snap.ExpoTickets
	}
	var ready []models.Ticket
	for _, ticket := range snap.Tickets {
		if ticket.Status == models.StatusReady || ticket.Status == models.StatusBumped {
			ready = append(ready, ticket)
		}
	}
	return ready
}

// AllDay rolls up non-voided item quantities by item name, bucketed by the
// owning ticket's status: new counts as pending, in_progress and recalled
// as in progress, bumped as completed. Rows sort by total descending with
// name as the deterministic tiebreak.
func AllDay(snap *store.Snapshot) []AllDayRow {
	byName := make(map[string]*AllDayRow)
	for _, ticket := range snap.Tickets {
		for _, item := range ticket.Items {
			if item.IsVoided {
				continue
			}
			row, ok := byName[item.Name]
			if !ok {
				row = &AllDayRow{Name: item.Name}
				byName[item.Name] = row
			}
			row.Total += item.Quantity
			switch ticket.Status {
			case models.StatusInProgress, models.StatusReady, models.StatusRecalled:
				row.InProgress += item.Quantity
			case models.StatusBumped:
				row.Completed += item.Quantity
			default:
				row.Pending += item.Quantity
			}
		}
	}

	rows := make([]AllDayRow, 0, len(byName))
	for _, row := range byName {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// History returns the most recently bumped tickets, newest first, bounded.
func History(snap *store.Snapshot, limit int) []models.Ticket {
	var bumped []models.Ticket
	for _, ticket := range snap.Tickets {
		if ticket.Status == models.StatusBumped {
			bumped = append(bumped, ticket)
		}
	}
	sort.SliceStable(bumped, func(i, j int) bool {
		ti, tj := bumped[i].BumpedAt, bumped[j].BumpedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(bumped) > limit {
		bumped = bumped[:limit]
	}
	return bumped
}

// FireableCourse describes one course of a dine-in ticket and whether its
// fire control should be offered.
type FireableCourse struct {
	Course models.Course `json:"course"`
	Items  int           `json:"items"`
	Fired  bool          `json:"fired"`
}

// FireableCourses lists the courses of a ticket that can be fired. Only
// dine-in tickets fire courses; a course with zero non-voided items is not
// offered, and a course counts as fired when every non-voided item in it is.
func FireableCourses(ticket *models.Ticket) []FireableCourse {
	if ticket == nil || ticket.OrderType != models.OrderTypeDineIn {
		return nil
	}

	order := []models.Course{
		models.CourseAppetizer,
		models.CourseMain,
		models.CourseDessert,
		models.CourseBeverage,
	}
	counts := make(map[models.Course]int)
	unfired := make(map[models.Course]int)
	for _, item := range ticket.Items {
		if item.IsVoided || item.Course == "" {
			continue
		}
		counts[item.Course]++
		if !item.IsFired {
			unfired[item.Course]++
		}
	}

	var courses []FireableCourse
	for _, course := range order {
		if counts[course] == 0 {
			continue
		}
		courses = append(courses, FireableCourse{
			Course: course,
			Items:  counts[course],
			Fired:  unfired[course] == 0,
		})
	}
	return courses
}
