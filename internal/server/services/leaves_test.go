package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	key string
	err error
}

func (p *fakePresigner) PresignUpload(_ context.Context, key string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.key = key
	return "https://s3.local/bucket/" + key + "?sig=1", nil
}

func newLeaves(f *fixture, p UploadPresigner) *LeaveService {
	s := NewLeaveService(f.tx, f.rm, p)
	s.now = f.clock.Now
	return s
}

func leaveReq(start, end string) LeaveRequest {
	return LeaveRequest{LeaveType: "sick", StartDate: start, EndDate: end, Reason: "flu", IsFullDay: true}
}

func TestLeave_ApplyAndList(t *testing.T) {
	f := newFixture(t)
	svc := newLeaves(f, &fakePresigner{})
	ctx := context.Background()
	uid := f.verifiedUser(t, "a@b.co", "pw")
	other := f.verifiedUser(t, "c@d.co", "pw")

	first, err := svc.Apply(ctx, uid, leaveReq("2025-04-01", "2025-04-01"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, models.LeaveStatusPending, first.Status)

	second, err := svc.Apply(ctx, uid, leaveReq("2025-05-01", "2025-05-03"))
	require.NoError(t, err)
	_, err = svc.Apply(ctx, other, leaveReq("2025-05-01", "2025-05-03"))
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, uid)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLeave_ApplyValidation(t *testing.T) {
	f := newFixture(t)
	svc := newLeaves(f, &fakePresigner{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  LeaveRequest
	}{
		{"start after end", leaveReq("2025-04-02", "2025-04-01")},
		{"missing dates", leaveReq("", "")},
		{"bad date", leaveReq("01.04.2025", "2025-04-02")},
		{"missing type", LeaveRequest{StartDate: "2025-04-01", EndDate: "2025-04-01", Reason: "r"}},
		{"missing reason", LeaveRequest{LeaveType: "sick", StartDate: "2025-04-01", EndDate: "2025-04-01"}},
		{"long reason", LeaveRequest{LeaveType: "sick", StartDate: "2025-04-01", EndDate: "2025-04-01", Reason: strings.Repeat("r", 501)}},
		{"foreign attachment", LeaveRequest{LeaveType: "sick", StartDate: "2025-04-01", EndDate: "2025-04-01", Reason: "r", AttachmentKey: "leaves/someone-else/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, "u1", tt.req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestLeave_Decide(t *testing.T) {
	f := newFixture(t)
	svc := newLeaves(f, &fakePresigner{})
	ctx := context.Background()
	uid := f.verifiedUser(t, "a@b.co", "pw")
	admin := f.verifiedUser(t, "boss@b.co", "pw")

	l, err := svc.Apply(ctx, uid, leaveReq("2025-04-01", "2025-04-02"))
	require.NoError(t, err)

	_, err = svc.Decide(ctx, admin, l.ID, models.LeaveStatusPending)
	assert.ErrorIs(t, err, common.ErrValidation)

	got, err := svc.Decide(ctx, admin, l.ID, models.LeaveStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusApproved, got.Status)
	assert.Equal(t, admin, got.DecidedBy)

	_, err = svc.Decide(ctx, admin, l.ID, models.LeaveStatusRejected)
	assert.ErrorIs(t, err, common.ErrLeaveAlreadyDecided)

	_, err = svc.Decide(ctx, admin, uuid.NewString(), models.LeaveStatusRejected)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.Decide(ctx, admin, "not-a-uuid", models.LeaveStatusRejected)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLeave_Attachment(t *testing.T) {
	f := newFixture(t)
	p := &fakePresigner{}
	svc := newLeaves(f, p)
	ctx := context.Background()
	uid := f.verifiedUser(t, "a@b.co", "pw")

	key, url, err := svc.AttachmentUploadURL(ctx, uid)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "leaves/"+uid+"/2025/3/14/"), key)
	assert.Equal(t, key, p.key)
	assert.Contains(t, url, key)

	l, err := svc.Apply(ctx, uid, LeaveRequest{LeaveType: "sick", StartDate: "2025-04-01", EndDate: "2025-04-01", Reason: "r", AttachmentKey: key})
	require.NoError(t, err)
	assert.Equal(t, key, l.AttachmentKey)

	p.err = errBoom
	_, _, err = svc.AttachmentUploadURL(ctx, uid)
	assert.ErrorIs(t, err, errBoom)
}
