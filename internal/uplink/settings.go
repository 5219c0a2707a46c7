package uplink

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/linkkeeper/internal/blobstore"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
)

// RedactedPassword is shown instead of a stored password. Sending it back
// (or an empty password) keeps the stored one.
const RedactedPassword = "***"

// Settings are the operator-editable uplink parameters.
type Settings struct {
	Server   string `json:"server"`
	Subject  string `json:"subject"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Redacted hides the password.
func (s Settings) Redacted() Settings {
	if s.Password != "" {
		s.Password = RedactedPassword
	}
	return s
}

// Merge applies update over s. Empty fields keep their current value, and
// so does a redacted password.
func (s Settings) Merge(update Settings) Settings {
	if v := strings.TrimSpace(update.Server); v != "" {
		s.Server = v
	}
	if v := strings.TrimSpace(update.Subject); v != "" {
		s.Subject = v
	}
	if v := strings.TrimSpace(update.ClientID); v != "" {
		s.ClientID = v
	}
	if update.Username != "" {
		s.Username = update.Username
	}
	if update.Password != "" && update.Password != RedactedPassword {
		s.Password = update.Password
	}
	return s
}

// Validate requires a server and a subject free of wildcards.
func (s Settings) Validate() error {
	if s.Server == "" {
		return ferrors.ValidationError("uplink server is required").Build()
	}
	if s.Subject == "" || strings.ContainsAny(s.Subject, "*> ") {
		return ferrors.ValidationError("uplink subject must be a literal subject").
			WithContext("subject", s.Subject).Build()
	}
	return nil
}

// DefaultClientID derives a client id for device, unique per install.
func DefaultClientID(device string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	if device == "" {
		return "linkkeeper_" + suffix
	}
	return "linkkeeper_" + device + "_" + suffix
}

// LoadSettings returns the persisted settings merged over defaults. A missing
// record yields defaults.
func LoadSettings(ctx context.Context, store blobstore.Store, defaults Settings) (Settings, error) {
	data, ok, err := store.Load(ctx, blobstore.KeyUplink)
	if err != nil {
		return defaults, err
	}
	if !ok {
		return defaults, nil
	}
	var saved Settings
	if err := json.Unmarshal(data, &saved); err != nil {
		return defaults, ferrors.WrapError(err, ferrors.CategoryStorage, "decode uplink settings").Build()
	}
	return defaults.Merge(saved), nil
}

// SaveSettings persists s.
func SaveSettings(ctx context.Context, store blobstore.Store, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return ferrors.InternalError("encode uplink settings").WithCause(err).Build()
	}
	return store.Save(ctx, blobstore.KeyUplink, data)
}
