package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Request headers written by Sign.
const (
	HeaderLanguage      = "x-mq-language"
	HeaderClientVersion = "x-mq-client-version"
	HeaderProtocol      = "x-mq-protocol"
	HeaderArn           = "x-mq-arn"
	HeaderTenantID      = "x-mq-tenant-id"
	HeaderDateTime      = "x-mq-date-time"
	HeaderRequestID     = "x-mq-request-id"
	HeaderSessionToken  = "x-mq-session-token"
	HeaderAuthorization = "authorization"
)

const (
	Algorithm      = "MQv2-HMAC-SHA1"
	DateTimeFormat = "20060102T150405Z"

	Language        = "GO"
	ClientVersion   = "5.0.0"
	ProtocolVersion = "v1"
)

// SignConfig is what Sign needs to know about the client.
type SignConfig struct {
	Arn         string
	TenantID    string
	Region      string
	ServiceName string
	Provider    CredentialsProvider
	// Now replaces time.Now if set.
	Now func() time.Time
}

// Sign writes the authentication headers of one request into md.
// On error md is left untouched. A nil md is an error.
func Sign(cfg SignConfig, md map[string]string) error {
	if md == nil {
		return errors.New("sign: nil metadata")
	}
	if cfg.Provider == nil {
		return errors.New("sign: no credentials provider")
	}
	creds, err := cfg.Provider.Credentials()
	if err != nil {
		return errors.WithMessage(err, "sign: get credentials")
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	t := now().UTC()
	if creds.Empty() {
		return errors.WithMessage(ErrEmptyCredentials, "sign")
	}
	if creds.Expired(t) {
		return errors.WithMessagef(ErrExpiredCredentials, "sign: expired at %s", creds.Expiration)
	}

	dateTime := t.Format(DateTimeFormat)
	md[HeaderLanguage] = Language
	md[HeaderClientVersion] = ClientVersion
	md[HeaderProtocol] = ProtocolVersion
	md[HeaderArn] = cfg.Arn
	if cfg.TenantID != "" {
		md[HeaderTenantID] = cfg.TenantID
	}
	md[HeaderDateTime] = dateTime
	md[HeaderRequestID] = uuid.NewString()
	if creds.SecurityToken != "" {
		md[HeaderSessionToken] = creds.SecurityToken
	}
	md[HeaderAuthorization] = fmt.Sprintf("%s Credential=%s/%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm, creds.AccessKey, cfg.Region, cfg.ServiceName, HeaderDateTime, signature(creds.AccessSecret, dateTime))
	return nil
}

// signature is the hex HMAC-SHA1 of data keyed with secret.
func signature(secret, data string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
