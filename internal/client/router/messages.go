package router

import (
	"time"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/client/vault"
)

type Type string

const (
	TypeGetStatus          Type = "GET_STATUS"
	TypeLogin              Type = "LOGIN"
	TypeSignup             Type = "SIGNUP"
	TypeAPIHealthCheck     Type = "API_HEALTH_CHECK"
	TypeGetConfig          Type = "GET_CONFIG"
	TypeSaveConfig         Type = "SAVE_CONFIG"
	TypeLogout             Type = "LOGOUT"
	TypeUnlockVault        Type = "UNLOCK_VAULT"
	TypeLockVault          Type = "LOCK_VAULT"
	TypeExportVault        Type = "EXPORT_VAULT"
	TypeGetAll             Type = "GET_ALL_DECRYPTED_CREDENTIALS"
	TypeGetForDomain       Type = "GET_DECRYPTED_CREDENTIALS_FOR_DOMAIN"
	TypeCountForDomain     Type = "COUNT_FOR_DOMAIN"
	TypeCreateCredential   Type = "CREATE_CREDENTIAL"
	TypePromptToSave       Type = "PROMPT_TO_SAVE"
	TypeGetPendingSaveData Type = "GET_PENDING_SAVE_DATA"
	TypeCancelSave         Type = "CANCEL_SAVE"
	TypeConfirmSave        Type = "CONFIRM_SAVE"
)

// Kind classifies a failed request.
type Kind string

const (
	KindTransport             Kind = "TransportError"
	KindAuthentication        Kind = "AuthenticationError"
	KindSessionExpired        Kind = "SessionExpiredError"
	KindNotLoggedIn           Kind = "NotLoggedIn"
	KindMasterPasswordInvalid Kind = "MasterPasswordInvalid"
	KindVaultCorrupt          Kind = "VaultCorrupt"
	KindEmptyVault            Kind = "EmptyVaultError"
	KindVaultLocked           Kind = "VaultLockedError"
	KindUnlockInProgress      Kind = "UnlockInProgress"
	KindInvalidRequest        Kind = "InvalidRequest"
	KindRequestRejected       Kind = "RequestRejected"
	KindInternal              Kind = "InternalError"
)

// Request is one message from a UI surface. Only the fields the Type needs
// are read.
type Request struct {
	Type           Type   `json:"type"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	MasterPassword string `json:"masterPassword,omitempty"`
	Domain         string `json:"domain,omitempty"`
	URL            string `json:"url,omitempty"`
	Description    string `json:"description,omitempty"`
	TTL            int    `json:"ttl,omitempty"`
	API            string `json:"pm_api,omitempty"`
}

// Response answers a Request. On failure OK is false and ErrorKind and
// Error are set; Error is ready to show to the user.
type Response struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ErrorKind Kind   `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`

	Status      *Status                  `json:"status,omitempty"`
	Config      *Config                  `json:"config,omitempty"`
	Unlock      *UnlockResult            `json:"unlock,omitempty"`
	Credentials []vault.Credential       `json:"credentials,omitempty"`
	Count       *int                     `json:"count,omitempty"`
	Created     *api.Credential          `json:"created,omitempty"`
	Pending     *PendingSave             `json:"pending,omitempty"`
	Export      *api.ExportVaultResponse `json:"export,omitempty"`
}

type Status struct {
	LoggedIn      bool       `json:"isLoggedIn"`
	VaultUnlocked bool       `json:"isVaultUnlocked"`
	Username      string     `json:"username,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

type Config struct {
	API string `json:"pm_api"`
	TTL int    `json:"pm_ttl"`
}

type UnlockResult struct {
	Decrypted int      `json:"decrypted"`
	Skipped   []string `json:"skipped,omitempty"`
}

// PendingSave is a credential captured by a UI surface and waiting for the
// user to confirm it.
type PendingSave struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}
