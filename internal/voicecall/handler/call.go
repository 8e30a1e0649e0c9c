package handler

import (
	"net/http"

	"callbridge/internal/apierrors"
	"callbridge/internal/callcontext"
	"callbridge/internal/observability"
	"callbridge/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
)

type StartCallRequest struct {
	To                string `json:"to" binding:"required"`
	CustomerName      string `json:"customerName"`
	VehicleName       string `json:"vehicleName"`
	RentalStartDate   string `json:"rentalStartDate"`
	RentalDays        string `json:"rentalDays"`
	State             string `json:"state"`
	DriverLicense     string `json:"driverLicense"`
	InsuranceProvider string `json:"insuranceProvider"`
	PolicyNumber      string `json:"policyNumber"`
}

type StartCallResponse struct {
	Message string `json:"message"`
	CallSID string `json:"callSid"`
}

// HandleStartCall places an outbound verification call
func (h *Handler) HandleStartCall(c *gin.Context) {
	ctx := c.Request.Context()

	var req StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	result, err := h.processor.StartCall(ctx, processor.StartCallRequest{
		To: req.To,
		Context: callcontext.CallContext{
			CustomerName:      req.CustomerName,
			VehicleName:       req.VehicleName,
			RentalStartDate:   req.RentalStartDate,
			RentalDays:        req.RentalDays,
			State:             req.State,
			DriverLicense:     req.DriverLicense,
			InsuranceProvider: req.InsuranceProvider,
			PolicyNumber:      req.PolicyNumber,
		},
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	h.logger.Info(observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: result.CallSID}), "call initiated")
	c.JSON(http.StatusOK, StartCallResponse{
		Message: "Call initiated",
		CallSID: result.CallSID,
	})
}

type TranscriptResponse struct {
	CallSID string            `json:"callSid"`
	Entries []TranscriptEntry `json:"entries"`
}

type TranscriptEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
	At   string `json:"at"`
}

// HandleTranscript returns the live transcript of a call
func (h *Handler) HandleTranscript(c *gin.Context) {
	callSID := c.Param("callSid")

	entries, err := h.processor.Transcript(c.Request.Context(), callSID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	resp := TranscriptResponse{CallSID: callSID, Entries: make([]TranscriptEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, TranscriptEntry{
			Role: string(e.Role),
			Text: e.Text,
			At:   e.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	c.JSON(http.StatusOK, resp)
}
