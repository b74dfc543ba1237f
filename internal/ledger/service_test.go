package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"vc-gateway/internal/credential/models"
	"vc-gateway/internal/credential/status"
	"vc-gateway/internal/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
	svc   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	svc, err := New(s.ctx, s.store,
		WithAuthorityLocation("/v2", "https://auth.example"))
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) TestAppendRejectsRecordWithoutIdentity() {
	_, err := s.svc.Append(s.ctx, Record{Status: "ACCEPTED"})
	s.ErrorIs(err, sentinel.ErrInvalidInput)
	s.Empty(s.svc.Records())
}

func (s *ServiceSuite) TestAppendNormalizesAndComputesDerivedFields() {
	stored, err := s.svc.Append(s.ctx, Record{
		CID:       `"https://auth.example/api/credential/abc-123/"`,
		Status:    "accepted",
		CardScope: models.CardScopeCondition,
	})
	s.Require().NoError(err)

	s.Equal("abc-123", stored.CID)
	s.Equal("ACCEPTED", stored.Status)
	s.True(stored.Collected)
	s.Equal("Collected (ACCEPTED)", stored.StatusText)
	s.Equal(string(status.ToneSuccess), stored.StatusTone)
	s.Equal(models.ScopeMedicalRecord, stored.Scope)
	s.Equal("/v2/api/credential/abc-123/revocation", stored.RevocationPath)
	s.Equal("/api/credential/abc-123/revocation", stored.RevocationDisplayPath)
	s.Equal("https://auth.example/v2/api/credential/abc-123/revocation", stored.RevocationURL)
	s.NotEmpty(stored.Timestamp)
}

func (s *ServiceSuite) TestAppendDerivesCIDFromJTI() {
	stored, err := s.svc.Append(s.ctx, Record{
		CredentialJTI: "https://auth.example//api/credential/abc-123",
	})
	s.Require().NoError(err)
	s.Equal("abc-123", stored.CID)
}

func (s *ServiceSuite) TestAppendMergesBySharedTransactionID() {
	_, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1", HolderDID: "did:example:1"})
	s.Require().NoError(err)
	_, err = s.svc.Append(s.ctx, Record{TransactionID: "other"})
	s.Require().NoError(err)

	stored, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1", CID: "abc-123", Status: "ACCEPTED"})
	s.Require().NoError(err)

	records := s.svc.Records()
	s.Require().Len(records, 2)
	// The merged record moves to the front and keeps earlier fields.
	s.Equal("tx-1", records[0].TransactionID)
	s.Equal("abc-123", records[0].CID)
	s.Equal("did:example:1", records[0].HolderDID)
	s.True(records[0].Collected)
	s.Equal(stored, records[0])
}

func (s *ServiceSuite) TestAppendMergesBySharedCID() {
	_, err := s.svc.Append(s.ctx, Record{CID: "abc-123", CollectedAt: "2026-02-03T04:05:06Z"})
	s.Require().NoError(err)

	_, err = s.svc.Append(s.ctx, Record{CID: "abc-123", TransactionID: "tx-9"})
	s.Require().NoError(err)

	records := s.svc.Records()
	s.Require().Len(records, 1)
	s.Equal("tx-9", records[0].TransactionID)
	s.Equal("2026-02-03T04:05:06Z", records[0].CollectedAt)
}

func (s *ServiceSuite) TestMergeKeepsOriginalTimestampAndCID() {
	first, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1", CID: "abc-123"})
	s.Require().NoError(err)

	// A sparser update for the same transaction never blanks the CID and
	// never rewrites the issuance timestamp.
	merged, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1", Status: "PENDING"})
	s.Require().NoError(err)
	s.Equal("abc-123", merged.CID)
	s.Equal(first.Timestamp, merged.Timestamp)
}

func (s *ServiceSuite) TestCapEvictsOldestEntries() {
	for i := 0; i < DefaultCap+5; i++ {
		_, err := s.svc.Append(s.ctx, Record{TransactionID: fmt.Sprintf("tx-%03d", i)})
		s.Require().NoError(err)
	}

	records := s.svc.Records()
	s.Require().Len(records, DefaultCap)
	s.Equal(fmt.Sprintf("tx-%03d", DefaultCap+4), records[0].TransactionID)
	s.Equal("tx-005", records[len(records)-1].TransactionID)
}

func (s *ServiceSuite) TestMergeAtCapacityDoesNotEvict() {
	for i := 0; i < DefaultCap; i++ {
		_, err := s.svc.Append(s.ctx, Record{TransactionID: fmt.Sprintf("tx-%03d", i)})
		s.Require().NoError(err)
	}

	_, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-000", Status: "ACCEPTED"})
	s.Require().NoError(err)

	records := s.svc.Records()
	s.Require().Len(records, DefaultCap)
	s.Equal("tx-000", records[0].TransactionID)
	// The oldest distinct identity is still present.
	s.Equal("tx-001", records[len(records)-1].TransactionID)
}

func (s *ServiceSuite) TestApplyFactsPendingPreservesReconciledFields() {
	_, err := s.svc.Append(s.ctx, Record{
		TransactionID: "tx-1",
		CID:           "abc-123",
		Status:        "ACCEPTED",
		CollectedAt:   "2026-02-03T04:05:06Z",
	})
	s.Require().NoError(err)

	updated, err := s.svc.ApplyFacts(s.ctx, 0, Facts{
		Pending: true,
		Hint:    "credential not collected yet",
		Source:  models.LookupSourceNonce,
	})
	s.Require().NoError(err)

	s.True(updated.LookupPending)
	s.Equal("credential not collected yet", updated.LookupHint)
	s.Empty(updated.LookupError)
	s.Equal("abc-123", updated.CID)
	s.Equal("ACCEPTED", updated.Status)
	s.True(updated.Collected)
	s.Equal("2026-02-03T04:05:06Z", updated.CollectedAt)
}

func (s *ServiceSuite) TestApplyFactsFailurePreservesReconciledFields() {
	_, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1", CID: "abc-123"})
	s.Require().NoError(err)

	updated, err := s.svc.ApplyFacts(s.ctx, 0, Facts{Error: "authority unreachable"})
	s.Require().NoError(err)

	s.Equal("authority unreachable", updated.LookupError)
	s.False(updated.LookupPending)
	s.Equal("abc-123", updated.CID)
}

func (s *ServiceSuite) TestApplyFactsSuccessClearsStaleAnnotations() {
	_, err := s.svc.Append(s.ctx, Record{
		TransactionID: "tx-1",
		LookupPending: true,
		LookupHint:    "try again",
	})
	s.Require().NoError(err)

	updated, err := s.svc.ApplyFacts(s.ctx, 0, Facts{
		OK:        true,
		CID:       "abc-123",
		Status:    "REVOKED",
		RevokedAt: "2026-02-04T00:00:00Z",
		Source:    models.LookupSourceNonce,
	})
	s.Require().NoError(err)

	s.False(updated.LookupPending)
	s.Empty(updated.LookupHint)
	s.Equal("abc-123", updated.CID)
	s.Equal("REVOKED", updated.Status)
	s.False(updated.Collected)
	s.Equal("error", updated.StatusTone)
	s.Equal("2026-02-04T00:00:00Z", updated.RevokedAt)
	s.Equal(models.LookupSourceNonce, updated.LookupSource)
}

func (s *ServiceSuite) TestUpdateRollsBackWhenIdentityStripped() {
	_, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1"})
	s.Require().NoError(err)

	_, err = s.svc.Update(s.ctx, 0, func(rec *Record) {
		rec.TransactionID = ""
		rec.CID = ""
		rec.CredentialJTI = ""
	})
	s.ErrorIs(err, sentinel.ErrInvalidInput)

	records := s.svc.Records()
	s.Require().Len(records, 1)
	s.Equal("tx-1", records[0].TransactionID)
}

func (s *ServiceSuite) TestRemoveAndClear() {
	_, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1"})
	s.Require().NoError(err)
	_, err = s.svc.Append(s.ctx, Record{TransactionID: "tx-2"})
	s.Require().NoError(err)

	s.ErrorIs(s.svc.Remove(s.ctx, 5), sentinel.ErrNotFound)
	s.Require().NoError(s.svc.Remove(s.ctx, 0))

	records := s.svc.Records()
	s.Require().Len(records, 1)
	s.Equal("tx-1", records[0].TransactionID)

	s.Require().NoError(s.svc.Clear(s.ctx))
	s.Empty(s.svc.Records())
}

func (s *ServiceSuite) TestSnapshotPersistedAfterEveryMutation() {
	_, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1"})
	s.Require().NoError(err)

	saved, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(saved, 1)
	s.Equal("tx-1", saved[0].TransactionID)

	s.Require().NoError(s.svc.Clear(s.ctx))
	saved, err = s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(saved)
}

func (s *ServiceSuite) TestRehydrateDropsMalformedEntries() {
	store := NewMemoryStore()
	s.Require().NoError(store.Save(s.ctx, []Record{
		{TransactionID: "tx-1", Status: "accepted"},
		{Status: "ACCEPTED"}, // no identity, must be dropped
		{CID: "abc-123"},
	}))

	svc, err := New(s.ctx, store, WithAuthorityLocation("/v2", "https://auth.example"))
	s.Require().NoError(err)

	records := svc.Records()
	s.Require().Len(records, 2)
	s.Equal("tx-1", records[0].TransactionID)
	s.Equal("ACCEPTED", records[0].Status)
	s.True(records[0].Collected)
	s.Equal("abc-123", records[1].CID)
}

func (s *ServiceSuite) TestSubscribeReceivesSnapshots() {
	var seen [][]Record
	unsubscribe := s.svc.Subscribe(func(records []Record) {
		seen = append(seen, records)
	})

	_, err := s.svc.Append(s.ctx, Record{TransactionID: "tx-1"})
	s.Require().NoError(err)
	s.Require().Len(seen, 1)
	s.Len(seen[0], 1)

	unsubscribe()
	_, err = s.svc.Append(s.ctx, Record{TransactionID: "tx-2"})
	s.Require().NoError(err)
	s.Len(seen, 1)
}

func (s *ServiceSuite) TestEventSinkObservesMutations() {
	sink := &captureSink{}
	store := NewMemoryStore()
	svc, err := New(s.ctx, store, WithEventSink(sink))
	s.Require().NoError(err)

	_, err = svc.Append(s.ctx, Record{TransactionID: "tx-1"})
	s.Require().NoError(err)
	_, err = svc.Append(s.ctx, Record{TransactionID: "tx-1", CID: "abc-123"})
	s.Require().NoError(err)
	s.Require().NoError(svc.Clear(s.ctx))

	s.Require().Len(sink.events, 3)
	s.Equal(EventAppended, sink.events[0].Type)
	s.Equal(EventUpdated, sink.events[1].Type)
	s.Equal(EventCleared, sink.events[2].Type)
	s.Equal(1, sink.events[1].Count)
	s.Equal(0, sink.events[2].Count)
}

type captureSink struct {
	events []Event
}

func (c *captureSink) Publish(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return nil
}
