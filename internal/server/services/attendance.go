package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/repositories/attendance"
	"github.com/dmitrijs2005/ems/internal/server/repositories/repomanager"
)

const (
	timeLayout      = "15:04:05"
	shortTimeLayout = "15:04"

	maxLocationLength = 255
)

// PunchRequest is the input of a punch-in or punch-out. Empty Date and
// Time default to the server clock.
type PunchRequest struct {
	Date      string
	Time      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// AttendanceQuery selects records by a single date or an inclusive range.
type AttendanceQuery struct {
	Date      string
	StartDate string
	EndDate   string
}

// AttendanceService records punches. A user alternates strictly between
// punch-in and punch-out.
type AttendanceService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewAttendanceService(tx dbx.Transactor, m repomanager.RepositoryManager) *AttendanceService {
	return &AttendanceService{tx: tx, repomanager: m, now: time.Now}
}

// WithClock replaces the time source.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

func (s *AttendanceService) PunchIn(ctx context.Context, userID string, req PunchRequest) (*models.Attendance, error) {
	return s.punch(ctx, userID, models.ActionPunchIn, req)
}

func (s *AttendanceService) PunchOut(ctx context.Context, userID string, req PunchRequest) (*models.Attendance, error) {
	return s.punch(ctx, userID, models.ActionPunchOut, req)
}

func (s *AttendanceService) punch(ctx context.Context, userID string, action models.AttendanceAction, req PunchRequest) (*models.Attendance, error) {
	record, err := s.newRecord(userID, action, req)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return err
			}
			return fmt.Errorf("error locking user: %w", err)
		}

		repo := s.repomanager.Attendance(tx)

		open := false
		latest, err := repo.Latest(ctx, userID)
		switch {
		case err == nil:
			open = latest.ActionType == models.ActionPunchIn
		case errors.Is(err, common.ErrorNotFound):
		default:
			return fmt.Errorf("error loading attendance: %w", err)
		}

		if action == models.ActionPunchIn && open {
			return common.ErrAlreadyPunchedIn
		}
		if action == models.ActionPunchOut && !open {
			return common.ErrNotPunchedIn
		}

		if err := repo.Create(ctx, record); err != nil {
			return fmt.Errorf("error storing attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *AttendanceService) newRecord(userID string, action models.AttendanceAction, req PunchRequest) (*models.Attendance, error) {
	location := strings.TrimSpace(req.Location)
	switch {
	case location == "":
		return nil, common.NewValidationError("location is required")
	case len(location) > maxLocationLength:
		return nil, common.NewValidationError("location must be at most %d characters", maxLocationLength)
	case req.Latitude == nil || req.Longitude == nil:
		return nil, common.NewValidationError("latitude and longitude are required")
	case *req.Latitude < -90 || *req.Latitude > 90:
		return nil, common.NewValidationError("latitude must be between -90 and 90")
	case *req.Longitude < -180 || *req.Longitude > 180:
		return nil, common.NewValidationError("longitude must be between -180 and 180")
	}

	now := s.now()

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = now.Format(common.DateLayout)
	} else if err := checkDate("date", date); err != nil {
		return nil, err
	}

	clock, err := normalizeTime(req.Time, now)
	if err != nil {
		return nil, err
	}

	return &models.Attendance{
		UserID:     userID,
		ActionType: action,
		Date:       date,
		Time:       clock,
		Location:   location,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
	}, nil
}

// List returns the user's records for q in chronological order. With no
// filter every record is returned.
func (s *AttendanceService) List(ctx context.Context, userID string, q AttendanceQuery) ([]*models.Attendance, error) {
	var f attendance.Filter

	switch {
	case q.Date != "":
		if q.StartDate != "" || q.EndDate != "" {
			return nil, common.NewValidationError("use either date or start_date and end_date")
		}
		if err := checkDate("date", q.Date); err != nil {
			return nil, err
		}
		f = attendance.Filter{From: q.Date, To: q.Date}
	case q.StartDate != "" || q.EndDate != "":
		if q.StartDate == "" || q.EndDate == "" {
			return nil, common.NewValidationError("start_date and end_date must be given together")
		}
		if err := checkRange(q.StartDate, q.EndDate); err != nil {
			return nil, err
		}
		f = attendance.Filter{From: q.StartDate, To: q.EndDate}
	}

	records, err := s.repomanager.Attendance(s.tx.Conn()).List(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("error listing attendance: %w", err)
	}
	return records, nil
}

func checkDate(field, v string) error {
	if _, err := time.Parse(common.DateLayout, v); err != nil {
		return common.NewValidationError("%s must be in YYYY-MM-DD format", field)
	}
	return nil
}

// checkRange validates two YYYY-MM-DD dates with start not after end.
func checkRange(start, end string) error {
	s, err := time.Parse(common.DateLayout, start)
	if err != nil {
		return common.NewValidationError("start_date must be in YYYY-MM-DD format")
	}
	e, err := time.Parse(common.DateLayout, end)
	if err != nil {
		return common.NewValidationError("end_date must be in YYYY-MM-DD format")
	}
	if s.After(e) {
		return common.NewValidationError("start_date must not be after end_date")
	}
	return nil
}

// normalizeTime accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func normalizeTime(v string, now time.Time) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return now.Format(timeLayout), nil
	}
	for _, layout := range []string{timeLayout, shortTimeLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(timeLayout), nil
		}
	}
	return "", common.NewValidationError("time must be in HH:MM or HH:MM:SS format")
}
