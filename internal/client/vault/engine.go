package vault

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/cryptox"
	"github.com/dmitrijs2005/pmvault/internal/logging"
)

// deriveKey is replaced in tests to pause an unlock mid-flight.
var deriveKey = cryptox.DeriveKeyB64

// Engine owns the master key and the decrypted credentials of one user.
// It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	masterKey *cryptox.Key
	// secret is the master password, kept sealed for CreateCredential.
	secret *memguard.Enclave
	creds  map[string]Credential

	unlocking bool
	// gen is bumped by Lock so in-flight operations can tell the state
	// they started from is gone.
	gen uint64

	iterations int
	log        logging.Logger
}

// New returns a locked engine. iterations is the PBKDF2 count used to
// derive record keys.
func New(log logging.Logger, iterations int) *Engine {
	if iterations <= 0 {
		iterations = cryptox.DefaultIterations
	}
	return &Engine{iterations: iterations, log: log.With("module", "vault")}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.masterKey != nil:
		return Unlocked
	case e.unlocking:
		return Unlocking
	}
	return Locked
}

func (e *Engine) IsUnlocked() bool {
	return e.State() == Unlocked
}

// Unlock verifies masterPassword against the verification record of
// username and decrypts the remaining records.
//
// Failures: common.ErrEmptyVault, common.ErrVaultCorrupt,
// common.ErrMasterPasswordInvalid, common.ErrUnlockInProgress when another
// unlock is running and common.ErrUnlockInterrupted when Lock was called
// before this unlock finished. State only changes on success; a failed
// unlock of an already unlocked engine leaves it unlocked.
//
// Undecryptable or incomplete records are skipped and listed in the report.
// The key derivation is not interruptible, ctx is only used for logging.
func (e *Engine) Unlock(ctx context.Context, records []api.Credential, masterPassword, username string) (*UnlockReport, error) {
	e.mu.Lock()
	if e.unlocking {
		e.mu.Unlock()
		return nil, common.ErrUnlockInProgress
	}
	e.unlocking = true
	gen := e.gen
	e.mu.Unlock()

	key, creds, report, err := e.open(ctx, records, masterPassword, username)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.unlocking = false

	if err != nil {
		e.log.Info(ctx, "unlock failed", "reason", err)
		return nil, err
	}
	if e.gen != gen {
		key.Destroy()
		return nil, common.ErrUnlockInterrupted
	}

	e.dropLocked()
	e.masterKey = key
	e.secret = memguard.NewEnclave([]byte(masterPassword))
	e.creds = creds

	e.log.Info(ctx, "vault unlocked", "records", report.Decrypted, "skipped", len(report.Skipped))
	return report, nil
}

// open does the expensive part of Unlock without holding the lock.
func (e *Engine) open(ctx context.Context, records []api.Credential, masterPassword, username string) (*cryptox.Key, map[string]Credential, *UnlockReport, error) {
	if len(records) == 0 {
		return nil, nil, nil, common.ErrEmptyVault
	}

	idx := slices.IndexFunc(records, api.Credential.IsVerification)
	if idx < 0 {
		return nil, nil, nil, common.ErrVaultCorrupt
	}
	verification := records[idx]

	if masterPassword == "" {
		return nil, nil, nil, common.ErrMasterPasswordInvalid
	}

	vkey, err := deriveKey(masterPassword, verification.Salt, e.iterations)
	if err != nil {
		return nil, nil, nil, common.ErrMasterPasswordInvalid
	}
	pt, err := cryptox.Decrypt(payload(verification), "", e.iterations, vkey)
	if err != nil || pt != common.VerificationPlaintext(username) {
		vkey.Destroy()
		return nil, nil, nil, common.ErrMasterPasswordInvalid
	}

	report := &UnlockReport{}
	skip := func(id string, cause error) {
		report.Skipped = append(report.Skipped, SkippedRecord{
			ID:  id,
			Err: fmt.Errorf("%w: %w", common.ErrRecordSkipped, cause),
		})
		e.log.Warn(ctx, "record skipped", "id", id, "reason", cause)
	}

	// group by salt so each distinct salt is derived once and only one
	// record key is alive at a time
	bySalt := map[string][]api.Credential{}
	var salts []string
	for _, r := range records {
		switch {
		case r.IsVerification():
			continue
		case r.ID == "":
			skip(r.ID, errors.New("missing id"))
			continue
		case !r.Complete():
			skip(r.ID, errors.New("incomplete record"))
			continue
		}
		if _, ok := bySalt[r.Salt]; !ok {
			salts = append(salts, r.Salt)
		}
		bySalt[r.Salt] = append(bySalt[r.Salt], r)
	}

	creds := make(map[string]Credential, len(records)-1)
	for _, salt := range salts {
		key := vkey
		if salt != verification.Salt {
			key, err = deriveKey(masterPassword, salt, e.iterations)
			if err != nil {
				for _, r := range bySalt[salt] {
					skip(r.ID, err)
				}
				continue
			}
		}

		for _, r := range bySalt[salt] {
			password, err := cryptox.Decrypt(payload(r), "", e.iterations, key)
			if err != nil {
				skip(r.ID, err)
				continue
			}
			creds[r.ID] = Credential{
				ID:          r.ID,
				Domain:      recordDomain(r.URL, r.Domain),
				URL:         r.URL,
				Username:    r.Username,
				Password:    password,
				Description: r.Description,
			}
		}

		if key != vkey {
			key.Destroy()
		}
	}

	report.Decrypted = len(creds)
	return vkey, creds, report, nil
}

// Lock drops the master key, the retained secret and all decrypted
// credentials. It always succeeds.
func (e *Engine) Lock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.dropLocked()
}

func (e *Engine) dropLocked() {
	e.masterKey.Destroy()
	e.masterKey = nil
	e.secret = nil
	e.creds = nil
}

// LookupByDomain returns the credentials whose domain matches domain (see
// DomainMatches). The result order is unspecified.
func (e *Engine) LookupByDomain(domain string) ([]Credential, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.masterKey == nil {
		return nil, common.ErrVaultLocked
	}

	out := []Credential{}
	candidate := NormalizeDomain(domain)
	if candidate == "" {
		return out, nil
	}
	for _, c := range e.creds {
		if DomainMatches(candidate, c.Domain) {
			out = append(out, c)
		}
	}
	return out, nil
}

// All returns every decrypted credential ordered by domain and username.
func (e *Engine) All() ([]Credential, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.masterKey == nil {
		return nil, common.ErrVaultLocked
	}

	out := make([]Credential, 0, len(e.creds))
	for _, c := range e.creds {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Credential) int {
		return cmp.Or(cmp.Compare(a.Domain, b.Domain), cmp.Compare(a.Username, b.Username), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// CountForDomain is the number of LookupByDomain matches, 0 when locked.
func (e *Engine) CountForDomain(domain string) int {
	matches, err := e.LookupByDomain(domain)
	if err != nil {
		return 0
	}
	return len(matches)
}

// CreateCredential encrypts in.Password under the master password with a
// fresh salt, stores the record through store and adds it to the working
// set under the id the store returned. A store error is returned as is and
// leaves the working set untouched.
func (e *Engine) CreateCredential(ctx context.Context, store Persister, in NewCredential) (*api.Credential, error) {
	domain := recordDomain(in.URL, in.Domain)
	if domain == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: domain and password are required", common.ErrInvalidRequest)
	}
	if domain == common.VerificationDomain {
		return nil, fmt.Errorf("%w: reserved domain", common.ErrInvalidRequest)
	}

	e.mu.Lock()
	if e.masterKey == nil {
		e.mu.Unlock()
		return nil, common.ErrVaultLocked
	}
	secret, gen := e.secret, e.gen
	e.mu.Unlock()

	buf, err := secret.Open()
	if err != nil {
		return nil, fmt.Errorf("open master secret: %w", err)
	}
	p, err := cryptox.Encrypt(in.Password, string(buf.Bytes()), e.iterations)
	buf.Destroy()
	if err != nil {
		return nil, err
	}

	rec := api.Credential{
		Domain:      domain,
		URL:         in.URL,
		Username:    in.Username,
		Ciphertext:  p.Ciphertext,
		IV:          p.IV,
		Salt:        p.Salt,
		Description: in.Description,
	}

	resp, err := store.CreateCredential(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.ID = resp.ID

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.masterKey == nil {
		// stored remotely; the next unlock picks it up
		e.log.Info(ctx, "vault locked while saving credential", "id", rec.ID)
		return &rec, nil
	}
	e.creds[rec.ID] = Credential{
		ID:          rec.ID,
		Domain:      domain,
		URL:         in.URL,
		Username:    in.Username,
		Password:    in.Password,
		Description: in.Description,
	}
	return &rec, nil
}

func payload(c api.Credential) cryptox.Payload {
	return cryptox.Payload{Ciphertext: c.Ciphertext, IV: c.IV, Salt: c.Salt}
}
