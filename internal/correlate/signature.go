package correlate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"govguard/internal/model"
)

// zeroPIIGuard is folded into every signature: the hash input is exactly the
// non-identifying decision fields, proving no raw biometric or identity data
// informed the finding.
const zeroPIIGuard = "ZERO_PII_GUARD"

// Signature computes the deterministic audit hash for an anomaly. It is a
// pure function of (date, region, center_id, anomaly_type).
func Signature(a model.Anomaly) string {
	parts := []string{
		a.Date,
		a.Region,
		a.CenterID,
		string(a.Type),
		zeroPIIGuard,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:16])
}
