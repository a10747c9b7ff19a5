package onboarding

import (
	"time"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
	"github.com/ruteri/ondc-onboarding-service/registry"
)

// DefaultCallbackPath is where the registry posts on_subscribe challenges,
// relative to the subscriber URL.
const DefaultCallbackPath = "/ondc/callback"

// registryTimeFormat is the millisecond UTC timestamp the registry expects.
const registryTimeFormat = "2006-01-02T15:04:05.000Z"

func formatRegistryTime(t time.Time) string {
	return t.UTC().Format(registryTimeFormat)
}

// buildPayload renders a validated request into the registry wire format.
func buildPayload(req *interfaces.SubscriptionRequest, kp *kms.KeyPair, requestID string, now time.Time, callbackPath string) (*registry.SubscribePayload, error) {
	mobile, err := parseMobile(req.EntityData.MobileNo)
	if err != nil {
		return nil, err
	}

	info := kp.Info()
	e := req.EntityData
	cityCodes := e.CityCodes
	if cityCodes == nil {
		cityCodes = []string{}
	}

	participants := make([]registry.NetworkParticipant, 0, len(req.NetworkParticipants))
	for _, p := range req.NetworkParticipants {
		cities := p.CityCodes
		if cities == nil {
			cities = []string{}
		}
		participants = append(participants, registry.NetworkParticipant{
			SubscriberURL: p.SubscriberURL,
			Domain:        p.Domain,
			Type:          p.Type,
			MSN:           p.MSN,
			CityCode:      cities,
		})
	}

	return &registry.SubscribePayload{
		Context: registry.SubscribeContext{Operation: registry.Operation{OpsNo: int(req.OpsNo)}},
		Message: registry.SubscribeMessage{
			RequestID: requestID,
			Timestamp: formatRegistryTime(now),
			Entity: registry.Entity{
				GST: registry.GST{
					LegalEntityName: e.LegalEntityName,
					BusinessAddress: e.BusinessAddress,
					CityCode:        cityCodes,
					GSTNo:           e.GSTNo,
				},
				PAN: registry.PAN{
					NameAsPerPAN:        e.PANName,
					PANNo:               e.PANNo,
					DateOfIncorporation: e.DateOfIncorporation,
				},
				NameOfAuthorisedSignatory:    e.AuthorisedSignatoryName,
				AddressOfAuthorisedSignatory: e.AuthorisedSignatoryAddress,
				EmailID:                      e.EmailID,
				MobileNo:                     mobile,
				Country:                      e.Country,
				SubscriberID:                 info.SubscriberID,
				UniqueKeyID:                  info.UniqueKeyID,
				CallbackURL:                  callbackPath,
				KeyPair: registry.KeyPair{
					SigningPublicKey:    info.SigningPublicKey,
					EncryptionPublicKey: info.EncryptionPublicKey,
					ValidFrom:           formatRegistryTime(info.ValidFrom),
					ValidUntil:          formatRegistryTime(info.ValidUntil),
				},
			},
			NetworkParticipant: participants,
		},
	}, nil
}
