package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type CreateOfferingRequest struct {
	AssetType     string  `json:"asset_type"`
	AssetKind     string  `json:"asset_kind"`
	AssetDetails  string  `json:"asset_details,omitempty"`
	Region        string  `json:"region"`
	Purpose       string  `json:"purpose"`
	PricePerShare float64 `json:"price_per_share"`
	TotalShares   int     `json:"total_shares"`
}

type OfferingResponse struct {
	OfferingID      string  `json:"offering_id"`
	FarmerID        string  `json:"farmer_id"`
	AssetType       string  `json:"asset_type"`
	AssetKind       string  `json:"asset_kind"`
	AssetDetails    string  `json:"asset_details,omitempty"`
	Region          string  `json:"region"`
	Purpose         string  `json:"purpose"`
	PricePerShare   float64 `json:"price_per_share"`
	TotalShares     int     `json:"total_shares"`
	AvailableShares int     `json:"available_shares"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

type CatalogListingResponse struct {
	OfferingID      string  `json:"offering_id"`
	AssetType       string  `json:"asset_type"`
	AssetKind       string  `json:"asset_kind"`
	Region          string  `json:"region"`
	Purpose         string  `json:"purpose"`
	PricePerShare   float64 `json:"price_per_share"`
	TotalShares     int     `json:"total_shares"`
	AvailableShares int     `json:"available_shares"`
}

type CreateInvestmentRequest struct {
	OfferingID string `json:"offering_id"`
	Shares     int    `json:"shares"`
}

type InvestmentRequestResponse struct {
	RequestID       string  `json:"request_id"`
	OfferingID      string  `json:"offering_id"`
	InvestorID      string  `json:"investor_id"`
	SharesRequested int     `json:"shares_requested"`
	Amount          float64 `json:"amount"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	StatusChangedAt string  `json:"status_changed_at"`
}

type ForceCancelRequest struct {
	AdminCode string `json:"admin_code"`
	Reason    string `json:"reason"`
}

type OpenDeletionRequest struct {
	Reason string `json:"reason,omitempty"`
}

type DeletionStatusResponse struct {
	DeletionID   string                         `json:"deletion_id"`
	OfferingID   string                         `json:"offering_id"`
	Outcome      string                         `json:"outcome"`
	Total        int                            `json:"total_confirmations"`
	Confirmed    int                            `json:"confirmed"`
	Outstanding  int                            `json:"outstanding"`
	Confirmation []DeletionConfirmationResponse `json:"confirmations,omitempty"`
}

type DeletionConfirmationResponse struct {
	InvestorID  string `json:"investor_id"`
	Confirmed   bool   `json:"confirmed"`
	RespondedAt string `json:"responded_at,omitempty"`
}
