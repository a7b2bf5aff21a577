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
	"github.com/dmitrijs2005/ems/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	maxLeaveTypeLength = 100
	maxReasonLength    = 500
)

// LeaveRequest is the input of LeaveService.Apply.
type LeaveRequest struct {
	LeaveType     string
	StartDate     string
	EndDate       string
	Reason        string
	IsFullDay     bool
	AttachmentKey string
}

// LeaveService handles leave applications and their approval.
type LeaveService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	presigner   UploadPresigner
	now         func() time.Time
}

func NewLeaveService(tx dbx.Transactor, m repomanager.RepositoryManager, presigner UploadPresigner) *LeaveService {
	return &LeaveService{tx: tx, repomanager: m, presigner: presigner, now: time.Now}
}

// AttachmentPrefix is the key prefix under which userID may upload.
func AttachmentPrefix(userID string) string {
	return "leaves/" + userID + "/"
}

// attachmentKey builds a fresh object key, e.g. leaves/<uid>/2025/3/14/<uuid>.
func (s *LeaveService) attachmentKey(userID string) string {
	d := s.now()
	return fmt.Sprintf("%s%d/%d/%d/%v", AttachmentPrefix(userID), d.Year(), d.Month(), d.Day(), uuid.New())
}

// Apply files a pending leave request for userID.
func (s *LeaveService) Apply(ctx context.Context, userID string, req LeaveRequest) (*models.Leave, error) {
	leaveType := strings.TrimSpace(req.LeaveType)
	reason := strings.TrimSpace(req.Reason)

	switch {
	case leaveType == "":
		return nil, common.NewValidationError("leave_type is required")
	case len(leaveType) > maxLeaveTypeLength:
		return nil, common.NewValidationError("leave_type must be at most %d characters", maxLeaveTypeLength)
	case reason == "":
		return nil, common.NewValidationError("reason is required")
	case len(reason) > maxReasonLength:
		return nil, common.NewValidationError("reason must be at most %d characters", maxReasonLength)
	case req.StartDate == "" || req.EndDate == "":
		return nil, common.NewValidationError("start_date and end_date are required")
	}
	if err := checkRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if req.AttachmentKey != "" && !strings.HasPrefix(req.AttachmentKey, AttachmentPrefix(userID)) {
		return nil, common.NewValidationError("attachment_key does not belong to this user")
	}

	leave := &models.Leave{
		UserID:        userID,
		LeaveType:     leaveType,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Reason:        reason,
		IsFullDay:     req.IsFullDay,
		AttachmentKey: req.AttachmentKey,
	}
	if err := s.repomanager.Leaves(s.tx.Conn()).Create(ctx, leave); err != nil {
		return nil, fmt.Errorf("error storing leave: %w", err)
	}
	return leave, nil
}

// ListMine returns the user's own requests, newest first.
func (s *LeaveService) ListMine(ctx context.Context, userID string) ([]*models.Leave, error) {
	out, err := s.repomanager.Leaves(s.tx.Conn()).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing leaves: %w", err)
	}
	return out, nil
}

// ListAll returns every request, newest first.
func (s *LeaveService) ListAll(ctx context.Context) ([]*models.Leave, error) {
	out, err := s.repomanager.Leaves(s.tx.Conn()).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing leaves: %w", err)
	}
	return out, nil
}

// Decide approves or rejects a pending request. A request is decided once.
func (s *LeaveService) Decide(ctx context.Context, adminID, leaveID string, status models.LeaveStatus) (*models.Leave, error) {
	if status != models.LeaveStatusApproved && status != models.LeaveStatusRejected {
		return nil, common.NewValidationError("status must be approved or rejected")
	}
	if _, err := uuid.Parse(leaveID); err != nil {
		return nil, common.ErrorNotFound
	}

	repo := s.repomanager.Leaves(s.tx.Conn())

	leave, err := repo.Decide(ctx, leaveID, status, adminID)
	if err == nil {
		return leave, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error deciding leave: %w", err)
	}

	// no pending row: either it does not exist or it was already decided
	if _, err := repo.Get(ctx, leaveID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading leave: %w", err)
	}
	return nil, common.ErrLeaveAlreadyDecided
}

// AttachmentUploadURL reserves a key under the user's prefix and returns a
// presigned PUT URL for it.
func (s *LeaveService) AttachmentUploadURL(ctx context.Context, userID string) (key, url string, err error) {
	key = s.attachmentKey(userID)

	url, err = s.presigner.PresignUpload(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("error presigning upload: %w", err)
	}
	return key, url, nil
}
