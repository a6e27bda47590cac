package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

const (
	collectionName = "journals"

	// balanceTolerance is the absolute debit/credit drift accepted on posting.
	balanceTolerance = 0.01
	// highValueThreshold flags GL rows above this total, in entry currency.
	highValueThreshold = 100000.0

	// demoCompanyID is the only tenant that receives bootstrap demo data.
	demoCompanyID = "1"
)

const (
	exceptionWeekend   = "Weekend Posting"
	exceptionHighValue = "High Value Transaction"
)

var (
	// ErrUnbalanced indicates debits and credits drift beyond tolerance.
	ErrUnbalanced = errors.New("journal: debits and credits must balance")
	// ErrNoLines indicates an entry without lines.
	ErrNoLines = errors.New("journal: entry requires at least two lines")
	// ErrLineBothSides indicates a line carrying both a debit and a credit.
	ErrLineBothSides = errors.New("journal: line cannot carry both debit and credit")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("journal: amounts must be non-negative")
	// ErrUnknownAccount indicates a line referencing a missing account.
	ErrUnknownAccount = errors.New("journal: line references unknown account")
	// ErrDuplicateNumber indicates an append with an existing journal number.
	ErrDuplicateNumber = errors.New("journal: journal number already exists")
	// ErrNotFound indicates a missing entry.
	ErrNotFound = errors.New("journal: entry not found")
	// ErrNotPosted indicates an operation requiring a posted entry.
	ErrNotPosted = errors.New("journal: entry is not posted")
	// ErrInvalidStatus indicates a status outside the entry lifecycle.
	ErrInvalidStatus = errors.New("journal: invalid status")
)

// AccountDirectory resolves line accounts within a tenant.
type AccountDirectory interface {
	Get(ctx context.Context, companyID, code string) (accounts.Account, error)
}

// ReportInvalidator drops derived read models after a ledger write so they
// are rebuilt from the new entries on the next read.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service is the journal ledger engine: append-only entry storage, balance
// enforcement, reversal construction, and GL derivation.
type Service struct {
	entries     *kv.Collection[JournalEntry]
	accounts    AccountDirectory
	invalidator ReportInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService binds the engine to its store and account directory.
func NewService(store kv.Store, directory AccountDirectory) *Service {
	coll := kv.NewCollection(store, collectionName, func(e JournalEntry) string {
		return e.JournalNumber
	})
	return &Service{entries: coll, accounts: directory, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithInvalidator registers a read-model invalidator notified after every
// successful entry write. Invalidation failure never fails the write; the
// entry is already durable and the stale cache ages out on its own.
func (s *Service) WithInvalidator(inv ReportInvalidator, logger *slog.Logger) *Service {
	s.invalidator = inv
	s.logger = logger
	return s
}

func (s *Service) dropDerived(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("drop derived report caches", slog.Any("error", err))
	}
}

// List returns the tenant's entries. The demo tenant is bootstrapped with
// sample entries the first time its store is seen empty; every other tenant
// starts empty.
func (s *Service) List(ctx context.Context, companyID string) ([]JournalEntry, error) {
	scoped, err := s.entries.Find(ctx, func(e JournalEntry) bool { return e.CompanyID == companyID })
	if err != nil {
		return nil, err
	}
	if len(scoped) == 0 && companyID == demoCompanyID {
		seeded := demoEntries(s.now())
		if err := s.entries.InsertMany(ctx, seeded); err != nil {
			return nil, err
		}
		s.dropDerived(ctx)
		scoped = seeded
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		return scoped[i].TransactionDate < scoped[j].TransactionDate
	})
	return scoped, nil
}

// Get returns a tenant's entry by journal number.
func (s *Service) Get(ctx context.Context, companyID, number string) (JournalEntry, error) {
	entry, err := s.entries.FindOne(ctx, func(e JournalEntry) bool {
		return e.CompanyID == companyID && e.JournalNumber == number
	})
	if err != nil {
		return JournalEntry{}, ErrNotFound
	}
	return entry, nil
}

// Save appends a single entry. Posted entries are immutable: an existing
// journal number is rejected instead of updated in place.
func (s *Service) Save(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	prepared, err := s.prepare(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := s.entries.Insert(ctx, prepared); err != nil {
		if errors.Is(err, kv.ErrDuplicateKey) {
			return JournalEntry{}, fmt.Errorf("%w: %s", ErrDuplicateNumber, prepared.JournalNumber)
		}
		return JournalEntry{}, err
	}
	s.dropDerived(ctx)
	return prepared, nil
}

// SaveBatch appends several entries atomically with respect to the journal
// collection; any invalid entry rejects the whole batch before writing.
func (s *Service) SaveBatch(ctx context.Context, batch []JournalEntry) ([]JournalEntry, error) {
	prepared := make([]JournalEntry, 0, len(batch))
	for _, entry := range batch {
		p, err := s.prepare(ctx, entry)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, p)
	}
	if err := s.entries.InsertMany(ctx, prepared); err != nil {
		if errors.Is(err, kv.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateNumber, err)
		}
		return nil, err
	}
	s.dropDerived(ctx)
	return prepared, nil
}

// Reverse constructs and posts the contra-entry for a posted original. Every
// line swaps debit and credit; the original is left untouched.
func (s *Service) Reverse(ctx context.Context, companyID, number string) (JournalEntry, error) {
	original, err := s.Get(ctx, companyID, number)
	if err != nil {
		return JournalEntry{}, err
	}
	if original.Status != JournalStatusPosted {
		return JournalEntry{}, ErrNotPosted
	}
	lines := make([]JournalLine, 0, len(original.Lines))
	for _, line := range original.Lines {
		lines = append(lines, JournalLine{
			ID:          uuid.NewString(),
			AccountID:   line.AccountID,
			AccountName: line.AccountName,
			Debit:       line.Credit,
			Credit:      line.Debit,
			CostCenter:  line.CostCenter,
			Description: line.Description,
		})
	}
	reversal := JournalEntry{
		CompanyID:         original.CompanyID,
		Reference:         original.Reference,
		TransactionDate:   original.TransactionDate,
		Type:              JournalTypeReversal,
		Description:       fmt.Sprintf("Reversal of %s: %s", original.JournalNumber, original.Description),
		Currency:          original.Currency,
		ExchangeRate:      original.ExchangeRate,
		ReportingCurrency: original.ReportingCurrency,
		Status:            JournalStatusPosted,
		UserID:            original.UserID,
		Period:            original.Period,
		Lines:             lines,
		TotalAmount:       original.TotalAmount,
	}
	return s.Save(ctx, reversal)
}

// prepare validates and normalizes an entry for append.
func (s *Service) prepare(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	if entry.Status == "" {
		entry.Status = JournalStatusDraft
	}
	switch entry.Status {
	case JournalStatusDraft, JournalStatusPosted, JournalStatusReversed:
	default:
		return JournalEntry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, entry.Status)
	}
	if entry.Type == "" {
		entry.Type = JournalTypeGeneral
	}
	if !entry.Type.Valid() {
		return JournalEntry{}, fmt.Errorf("journal: unknown type %q", entry.Type)
	}
	if entry.CompanyID == "" {
		return JournalEntry{}, errors.New("journal: company id required")
	}
	if len(entry.Lines) < 2 {
		return JournalEntry{}, ErrNoLines
	}
	if _, err := parseCalendarDate(entry.TransactionDate); err != nil {
		return JournalEntry{}, err
	}
	var debit, credit float64
	for idx := range entry.Lines {
		line := &entry.Lines[idx]
		if line.Debit < 0 || line.Credit < 0 {
			return JournalEntry{}, fmt.Errorf("%w: line %d", ErrNegativeAmount, idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return JournalEntry{}, fmt.Errorf("%w: line %d", ErrLineBothSides, idx)
		}
		account, err := s.accounts.Get(ctx, entry.CompanyID, line.AccountID)
		if err != nil {
			return JournalEntry{}, fmt.Errorf("%w: %s", ErrUnknownAccount, line.AccountID)
		}
		if line.AccountName == "" {
			line.AccountName = account.Name
		}
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		debit += line.Debit
		credit += line.Credit
	}
	if entry.Status == JournalStatusPosted {
		if math.Abs(debit-credit) >= balanceTolerance {
			return JournalEntry{}, fmt.Errorf("%w: debit %.2f credit %.2f", ErrUnbalanced, debit, credit)
		}
		if entry.PostingDate == nil {
			posted := s.now()
			entry.PostingDate = &posted
		}
	}
	if entry.TotalAmount == 0 {
		entry.TotalAmount = debit
	}
	if entry.JournalNumber == "" {
		entry.JournalNumber = s.nextJournalNumber()
	}
	if entry.Currency == "" {
		entry.Currency = "USD"
	}
	if entry.ExchangeRate == 0 {
		entry.ExchangeRate = 1
	}
	if entry.Period == "" {
		entry.Period = entry.TransactionDate[:7]
	}
	entry.CreatedAt = s.now()
	return entry, nil
}

func (s *Service) nextJournalNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("JE-%d-%s", s.now().Year(), suffix)
}
