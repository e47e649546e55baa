package accounts

type SaveAccountPayload struct {
	AccountID string  `json:"account_id" validate:"max=200" mod:"trim"`
	APIKey    *string `json:"api_key,omitempty" validate:"omitempty,max=500"`
}
