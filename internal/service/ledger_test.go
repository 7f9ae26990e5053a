package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"custodyapi/internal/digest"
	"custodyapi/internal/model"
	"custodyapi/internal/repository"
	"custodyapi/internal/repository/memory"
	repoMocks "custodyapi/internal/repository/mocks"
	"custodyapi/internal/storage"
	storeMocks "custodyapi/internal/storage/mocks"
)

// tamperedRepo rewrites what ListByIncident returns, standing in for direct
// edits of the underlying table.
type tamperedRepo struct {
	repository.EvidenceRepository
	mutate func([]model.EvidenceRecord) []model.EvidenceRecord
}

func (r *tamperedRepo) ListByIncident(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error) {
	items, err := r.EvidenceRepository.ListByIncident(ctx, incidentID)
	if err != nil || r.mutate == nil {
		return items, err
	}
	return r.mutate(items), nil
}

func textPayload(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"excerpt":"post %d","language":"en"}`, i))
}

func newTestLedger(repo repository.EvidenceRepository, store storage.Storage) EvidenceLedger {
	return NewEvidenceLedger(repo, store, nil, nil, LedgerOptions{
		MaxAppendAttempts: 50,
		AppendBackoff:     time.Millisecond,
	})
}

func appendN(t *testing.T, l EvidenceLedger, incidentID string, n int) []*model.EvidenceRecord {
	t.Helper()
	out := make([]*model.EvidenceRecord, 0, n)
	for i := 1; i <= n; i++ {
		rec, err := l.Append(context.Background(), incidentID, model.EvidenceText, textPayload(i), "analyst")
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestEvidenceLedger_AppendLinksRecords(t *testing.T) {
	l := newTestLedger(memory.NewEvidenceStore(), nil)
	recs := appendN(t, l, "LK-1", 5)

	prev := model.NoPreviousHash
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.BlockIndex)
		assert.Equal(t, model.EvidenceID("LK-1", i+1), rec.EvidenceID)
		assert.Equal(t, prev, rec.PreviousHash)
		assert.Len(t, rec.ContentHash, digest.HexSize)
		prev = rec.ContentHash
	}

	res, err := l.VerifyChain(context.Background(), "LK-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Nil(t, res.BrokenAtIndex)
	assert.Equal(t, 5, res.Length)
	assert.Equal(t, recs[4].ContentHash, res.HeadHash)
}

func TestEvidenceLedger_VerifyAfterNAppends(t *testing.T) {
	for _, n := range []int{0, 1, 2, 17} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			l := newTestLedger(memory.NewEvidenceStore(), nil)
			appendN(t, l, "INC-42", n)

			res, err := l.VerifyChain(context.Background(), "INC-42")
			require.NoError(t, err)
			assert.True(t, res.Valid)
			assert.Equal(t, n, res.Length)
		})
	}
}

func TestEvidenceLedger_IncidentsAreIndependent(t *testing.T) {
	l := newTestLedger(memory.NewEvidenceStore(), nil)
	appendN(t, l, "LK-1", 3)
	b := appendN(t, l, "LK-2", 1)

	assert.Equal(t, 1, b[0].BlockIndex)
	assert.Equal(t, model.NoPreviousHash, b[0].PreviousHash)
}

func TestEvidenceLedger_TamperAtIndex(t *testing.T) {
	const n = 6
	for k := 1; k <= n; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			store := memory.NewEvidenceStore()
			appendN(t, newTestLedger(store, nil), "LK-1", n)

			repo := &tamperedRepo{EvidenceRepository: store, mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
				items[k-1].Payload = json.RawMessage(`{"excerpt":"edited","language":"en"}`)
				return items
			}}
			res, err := newTestLedger(repo, nil).VerifyChain(context.Background(), "LK-1")
			require.NoError(t, err)

			assert.False(t, res.Valid)
			require.NotNil(t, res.BrokenAtIndex)
			assert.Equal(t, k, *res.BrokenAtIndex)
			assert.Equal(t, model.BreakContentMismatch, res.Reason)
		})
	}
}

func TestEvidenceLedger_RehashedTamperBreaksNextLink(t *testing.T) {
	store := memory.NewEvidenceStore()
	appendN(t, newTestLedger(store, nil), "LK-1", 4)

	repo := &tamperedRepo{EvidenceRepository: store, mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
		rec := &items[1]
		rec.Payload = json.RawMessage(`{"excerpt":"edited","language":"en"}`)
		rec.ContentHash, _ = digest.Evidence(rec.EvidenceType, rec.Payload, rec.CapturedBy, rec.CapturedAt)
		return items
	}}
	res, err := newTestLedger(repo, nil).VerifyChain(context.Background(), "LK-1")
	require.NoError(t, err)

	require.NotNil(t, res.BrokenAtIndex)
	assert.Equal(t, 3, *res.BrokenAtIndex)
	assert.Equal(t, model.BreakLinkMismatch, res.Reason)
}

func TestEvidenceLedger_DeleteOrReorder(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func([]model.EvidenceRecord) []model.EvidenceRecord
		wantIndex  int
		wantReason model.ChainBreak
	}{
		{
			name: "middle record deleted",
			mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
				return append(items[:2], items[3:]...)
			},
			wantIndex:  3,
			wantReason: model.BreakSequenceGap,
		},
		{
			name: "middle records swapped with their indices",
			mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
				items[2], items[3] = items[3], items[2]
				items[2].BlockIndex, items[3].BlockIndex = 3, 4
				return items
			},
			wantIndex:  3,
			wantReason: model.BreakLinkMismatch,
		},
		{
			name: "middle records swapped keeping their indices",
			mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
				items[2], items[3] = items[3], items[2]
				return items
			},
			wantIndex:  3,
			wantReason: model.BreakSequenceGap,
		},
		{
			name: "duplicated index",
			mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
				items[3].BlockIndex = 3
				return items
			},
			wantIndex:  4,
			wantReason: model.BreakSequenceGap,
		},
		{
			name: "first record no longer anchored",
			mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
				items[0].PreviousHash = strings.Repeat("0", digest.HexSize)
				return items
			},
			wantIndex:  1,
			wantReason: model.BreakLinkMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewEvidenceStore()
			appendN(t, newTestLedger(store, nil), "LK-1", 5)

			res, err := newTestLedger(&tamperedRepo{EvidenceRepository: store, mutate: tt.mutate}, nil).
				VerifyChain(context.Background(), "LK-1")
			require.NoError(t, err)

			assert.False(t, res.Valid)
			require.NotNil(t, res.BrokenAtIndex)
			assert.Equal(t, tt.wantIndex, *res.BrokenAtIndex)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestEvidenceLedger_LK1Scenario(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEvidenceStore()
	l := newTestLedger(store, nil)

	e1, err := l.Append(ctx, "LK-1", model.EvidenceScreenshot, json.RawMessage(`{"url":"https://example.org/post/1","resolution":"1920x1080"}`), "analyst")
	require.NoError(t, err)
	assert.Equal(t, 1, e1.BlockIndex)
	assert.Equal(t, "none", e1.PreviousHash)

	e2, err := l.Append(ctx, "LK-1", model.EvidenceText, textPayload(2), "analyst")
	require.NoError(t, err)
	assert.Equal(t, 2, e2.BlockIndex)
	assert.Equal(t, e1.ContentHash, e2.PreviousHash)

	res, err := l.VerifyChain(ctx, "LK-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	items, err := store.ListByIncident(ctx, "LK-1")
	require.NoError(t, err)
	assert.True(t, items[0].Verified)
	assert.True(t, items[1].Verified)

	overwritten := &tamperedRepo{EvidenceRepository: store, mutate: func(items []model.EvidenceRecord) []model.EvidenceRecord {
		items[0].Payload = json.RawMessage(`{"url":"https://example.org/post/999","resolution":"1920x1080"}`)
		return items
	}}
	res, err = newTestLedger(overwritten, nil).VerifyChain(ctx, "LK-1")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.NotNil(t, res.BrokenAtIndex)
	assert.Equal(t, 1, *res.BrokenAtIndex)

	items, err = store.ListByIncident(ctx, "LK-1")
	require.NoError(t, err)
	assert.False(t, items[0].Verified)
	assert.False(t, items[1].Verified)
}

func TestEvidenceLedger_ConcurrentAppends(t *testing.T) {
	const n = 50
	store := memory.NewEvidenceStore()
	l := newTestLedger(store, nil)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Append(context.Background(), "LK-1", model.EvidenceText, textPayload(i), "analyst")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := store.ListByIncident(context.Background(), "LK-1")
	require.NoError(t, err)
	require.Len(t, items, n)
	for i, rec := range items {
		assert.Equal(t, i+1, rec.BlockIndex)
	}

	res, err := l.VerifyChain(context.Background(), "LK-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestEvidenceLedger_ConcurrentWritersShareStore(t *testing.T) {
	// Two ledgers over one store behave like two processes: only the
	// conditional insert keeps the chain linear.
	store := memory.NewEvidenceStore()
	writers := []EvidenceLedger{newTestLedger(store, nil), newTestLedger(store, nil)}

	var wg sync.WaitGroup
	for w, l := range writers {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(l EvidenceLedger, i int) {
				defer wg.Done()
				_, err := l.Append(context.Background(), "LK-7", model.EvidenceText, textPayload(i), fmt.Sprintf("writer-%d", w))
				assert.NoError(t, err)
			}(l, i)
		}
	}
	wg.Wait()

	res, err := writers[0].VerifyChain(context.Background(), "LK-7")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 20, res.Length)
}

func TestEvidenceLedger_AppendRetries(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(mRepo *repoMocks.MockEvidenceRepository)
		wantErr    error
		wantErrMsg string
		wantIndex  int
	}{
		{
			name: "conflict resolved by reading the new head",
			setupMocks: func(mRepo *repoMocks.MockEvidenceRepository) {
				mRepo.On("Head", mock.Anything, "LK-1").Return(repository.ChainHead{BlockIndex: 1, ContentHash: "h1"}, nil).Once()
				mRepo.On("Insert", mock.Anything, mock.MatchedBy(func(r *model.EvidenceRecord) bool { return r.BlockIndex == 2 })).
					Return(nil, repository.ErrConflict).Once()
				mRepo.On("Head", mock.Anything, "LK-1").Return(repository.ChainHead{BlockIndex: 2, ContentHash: "h2"}, nil).Once()
				mRepo.On("Insert", mock.Anything, mock.MatchedBy(func(r *model.EvidenceRecord) bool {
					return r.BlockIndex == 3 && r.PreviousHash == "h2" && r.EvidenceID == "LK-1-EV-0003"
				})).Return(func(r *model.EvidenceRecord) *model.EvidenceRecord { return r }, nil).Once()
			},
			wantIndex: 3,
		},
		{
			name: "conflicts exhaust attempts",
			setupMocks: func(mRepo *repoMocks.MockEvidenceRepository) {
				mRepo.On("Head", mock.Anything, "LK-1").Return(repository.ChainHead{BlockIndex: 1, ContentHash: "h1"}, nil).Times(3)
				mRepo.On("Insert", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict).Times(3)
			},
			wantErr: ErrConcurrentAppendConflict,
		},
		{
			name: "head error is not retried",
			setupMocks: func(mRepo *repoMocks.MockEvidenceRepository) {
				mRepo.On("Head", mock.Anything, "LK-1").Return(repository.ChainHead{}, errors.New("db down")).Once()
			},
			wantErrMsg: "read chain head: db down",
		},
		{
			name: "insert error is not retried",
			setupMocks: func(mRepo *repoMocks.MockEvidenceRepository) {
				mRepo.On("Head", mock.Anything, "LK-1").Return(repository.ChainHead{ContentHash: model.NoPreviousHash}, nil).Once()
				mRepo.On("Insert", mock.Anything, mock.Anything).Return(nil, errors.New("disk full")).Once()
			},
			wantErrMsg: "insert evidence: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockEvidenceRepository)
			tt.setupMocks(mRepo)
			l := NewEvidenceLedger(mRepo, nil, nil, nil, LedgerOptions{MaxAppendAttempts: 3, AppendBackoff: time.Millisecond})

			rec, err := l.Append(ctx, "LK-1", model.EvidenceText, textPayload(1), "analyst")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantIndex, rec.BlockIndex)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestEvidenceLedger_AppendValidation(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockEvidenceRepository)
	l := NewEvidenceLedger(mRepo, nil, nil, nil, LedgerOptions{})

	_, err := l.Append(ctx, " ", model.EvidenceText, textPayload(1), "analyst")
	assert.ErrorIs(t, err, ErrIncidentRequired)

	_, err = l.Append(ctx, "LK-1", model.EvidenceText, textPayload(1), "")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = l.Append(ctx, "LK-1", model.EvidenceText, json.RawMessage(`{"excerpt":"x","language":"en","extra":1}`), "analyst")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = l.Append(ctx, "LK-1", "video", json.RawMessage(`{}`), "analyst")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	mRepo.AssertNotCalled(t, "Head", mock.Anything, mock.Anything)
	mRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestEvidenceLedger_StoresCanonicalPayload(t *testing.T) {
	l := newTestLedger(memory.NewEvidenceStore(), nil)

	rec, err := l.Append(context.Background(), "LK-1", model.EvidenceMetadata, json.RawMessage(`{ "z": 1, "a": {"y": "b", "x": 2.50} }`), "analyst")
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":2.50,"y":"b"},"z":1}`, string(rec.Payload))
}

func TestEvidenceLedger_MarkVerifiedFailureDoesNotChangeResult(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEvidenceStore()
	recs := appendN(t, newTestLedger(store, nil), "LK-1", 2)
	items, err := store.ListByIncident(ctx, "LK-1")
	require.NoError(t, err)

	mRepo := new(repoMocks.MockEvidenceRepository)
	mRepo.On("ListByIncident", mock.Anything, "LK-1").Return(items, nil)
	mRepo.On("MarkVerified", mock.Anything, "LK-1", 2).Return(errors.New("read only replica"))

	res, err := NewEvidenceLedger(mRepo, nil, nil, nil, LedgerOptions{}).VerifyChain(ctx, "LK-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, recs[1].ContentHash, res.HeadHash)
	mRepo.AssertExpectations(t)
}

func TestEvidenceLedger_AppendFile(t *testing.T) {
	ctx := context.Background()
	body := "%PDF-1.7 captured page"

	t.Run("stores blob and appends file record", func(t *testing.T) {
		blobs := storage.NewMemory()
		l := newTestLedger(memory.NewEvidenceStore(), blobs)

		rec, err := l.AppendFile(ctx, AppendFileRequest{
			IncidentID:  "LK-1",
			Filename:    "../capture.pdf",
			ContentType: "application/pdf",
			Size:        int64(len(body)),
			Body:        strings.NewReader(body),
			CapturedBy:  "analyst",
		})
		require.NoError(t, err)
		assert.Equal(t, model.EvidenceFile, rec.EvidenceType)

		var p model.FilePayload
		require.NoError(t, json.Unmarshal(rec.Payload, &p))
		assert.Equal(t, "capture.pdf", p.Filename)
		assert.Equal(t, digest.Sum([]byte(body)), p.Digest)
		assert.Equal(t, int64(len(body)), p.Size)
		assert.True(t, strings.HasPrefix(p.StorageKey, "evidence/LK-1/"))
		assert.True(t, strings.HasSuffix(p.StorageKey, ".pdf"))

		rc, _, err := blobs.Get(ctx, p.StorageKey)
		require.NoError(t, err)
		got, _ := io.ReadAll(rc)
		assert.Equal(t, body, string(got))
	})

	t.Run("upload removed when append fails", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				io.Copy(io.Discard, r)
				return storage.ObjectInfo{Key: key}
			}, nil)
		mStore.On("Delete", mock.Anything, mock.Anything).Return(nil)

		l := newTestLedger(memory.NewEvidenceStore(), mStore)
		_, err := l.AppendFile(ctx, AppendFileRequest{
			IncidentID: "LK-1",
			Filename:   "capture.pdf",
			Body:       strings.NewReader(body),
		})
		assert.ErrorIs(t, err, ErrInvalidPayload)
		mStore.AssertExpectations(t)
	})

	t.Run("storage error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("storage fail"))

		l := newTestLedger(memory.NewEvidenceStore(), mStore)
		_, err := l.AppendFile(ctx, AppendFileRequest{IncidentID: "LK-1", Filename: "a.png", Body: strings.NewReader("x"), CapturedBy: "analyst"})
		assert.EqualError(t, err, "upload to storage: storage fail")
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("nil reader", func(t *testing.T) {
		_, err := newTestLedger(memory.NewEvidenceStore(), storage.NewMemory()).AppendFile(ctx, AppendFileRequest{IncidentID: "LK-1"})
		assert.ErrorIs(t, err, ErrReaderNil)
	})
}
