package registry

// SubscribePayload is the body of a registry /subscribe call.
type SubscribePayload struct {
	Context SubscribeContext `json:"context"`
	Message SubscribeMessage `json:"message"`
}

type SubscribeContext struct {
	Operation Operation `json:"operation"`
}

type Operation struct {
	OpsNo int `json:"ops_no"`
}

type SubscribeMessage struct {
	RequestID          string               `json:"request_id"`
	Timestamp          string               `json:"timestamp"`
	Entity             Entity               `json:"entity"`
	NetworkParticipant []NetworkParticipant `json:"network_participant"`
}

type Entity struct {
	GST                          GST     `json:"gst"`
	PAN                          PAN     `json:"pan"`
	NameOfAuthorisedSignatory    string  `json:"name_of_authorised_signatory"`
	AddressOfAuthorisedSignatory string  `json:"address_of_authorised_signatory"`
	EmailID                      string  `json:"email_id"`
	MobileNo                     int64   `json:"mobile_no"`
	Country                      string  `json:"country"`
	SubscriberID                 string  `json:"subscriber_id"`
	UniqueKeyID                  string  `json:"unique_key_id"`
	CallbackURL                  string  `json:"callback_url"`
	KeyPair                      KeyPair `json:"key_pair"`
}

type GST struct {
	LegalEntityName string   `json:"legal_entity_name"`
	BusinessAddress string   `json:"business_address"`
	CityCode        []string `json:"city_code"`
	GSTNo           string   `json:"gst_no"`
}

type PAN struct {
	NameAsPerPAN        string `json:"name_as_per_pan"`
	PANNo               string `json:"pan_no"`
	DateOfIncorporation string `json:"date_of_incorporation"`
}

type KeyPair struct {
	SigningPublicKey    string `json:"signing_public_key"`
	EncryptionPublicKey string `json:"encryption_public_key"`
	ValidFrom           string `json:"valid_from"`
	ValidUntil          string `json:"valid_until"`
}

type NetworkParticipant struct {
	SubscriberURL string   `json:"subscriber_url"`
	Domain        string   `json:"domain"`
	Type          string   `json:"type"`
	MSN           bool     `json:"msn"`
	CityCode      []string `json:"city_code"`
}

// OnSubscribeRequest is the body the registry posts to the subscriber's
// on_subscribe callback.
type OnSubscribeRequest struct {
	SubscriberID string `json:"subscriber_id"`
	Challenge    string `json:"challenge"`
}

// OnSubscribeResponse answers an on_subscribe callback.
type OnSubscribeResponse struct {
	Answer string `json:"answer"`
}

type ackResponse struct {
	Message struct {
		Ack struct {
			Status string `json:"status"`
		} `json:"ack"`
	} `json:"message"`
}

// Ack statuses returned by the registry.
const (
	AckStatus  = "ACK"
	NackStatus = "NACK"
)
