package onboarding

import (
	"fmt"
	"strings"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// Participant types the registry accepts.
const (
	ParticipantBuyerApp  = "buyerApp"
	ParticipantSellerApp = "sellerApp"
	ParticipantGateway   = "gateway"
)

// ValidateSubscription checks a request before anything is signed. All
// failures wrap interfaces.ErrValidation.
func ValidateSubscription(req *interfaces.SubscriptionRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty subscription request", interfaces.ErrValidation)
	}
	if !req.OpsNo.Valid() {
		return fmt.Errorf("%w: opsNo %d outside 1..5", interfaces.ErrValidation, int(req.OpsNo))
	}
	if _, err := interfaces.ParseEnvironment(string(req.Environment)); err != nil {
		return err
	}
	if strings.TrimSpace(req.SubscriberID) == "" {
		return fmt.Errorf("%w: subscriberId is required", interfaces.ErrValidation)
	}

	if len(req.NetworkParticipants) == 0 {
		return fmt.Errorf("%w: at least one network participant is required", interfaces.ErrValidation)
	}
	for i, p := range req.NetworkParticipants {
		switch p.Type {
		case ParticipantBuyerApp, ParticipantSellerApp, ParticipantGateway:
		default:
			return fmt.Errorf("%w: networkParticipants[%d]: unknown type %q", interfaces.ErrValidation, i, p.Type)
		}
		if strings.TrimSpace(p.Domain) == "" {
			return fmt.Errorf("%w: networkParticipants[%d]: domain is required", interfaces.ErrValidation, i)
		}
	}

	e := req.EntityData
	required := []struct{ name, value string }{
		{"legalEntityName", e.LegalEntityName},
		{"gstNo", e.GSTNo},
		{"panNo", e.PANNo},
		{"emailId", e.EmailID},
		{"mobileNo", e.MobileNo},
		{"country", e.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: entityData.%s is required", interfaces.ErrValidation, f.name)
		}
	}
	if _, err := parseMobile(e.MobileNo); err != nil {
		return err
	}
	if !strings.Contains(e.EmailID, "@") {
		return fmt.Errorf("%w: entityData.emailId %q is not an email address", interfaces.ErrValidation, e.EmailID)
	}

	return nil
}

func parseMobile(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if s == "" || len(s) > 15 {
		return 0, fmt.Errorf("%w: entityData.mobileNo must be 1 to 15 digits", interfaces.ErrValidation)
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: entityData.mobileNo must be numeric", interfaces.ErrValidation)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}
