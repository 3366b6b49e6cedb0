package contract

const CodeSuccess = "success"

type Response struct {
	Successful bool   `json:"successful"`
	Code       string `json:"code"`
	Message    string `json:"message,omitempty"`
	TrackID    string `json:"x_track_id"`
	Result     any    `json:"result"`
}

// CallbackAck is the body the provider expects back from a callback delivery.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
	Result     string `json:"result,omitempty"`
}
