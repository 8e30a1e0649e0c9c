package twilio

import (
	"context"
	"errors"
	"fmt"

	"callbridge/internal/observability"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

const statusCompleted = "completed"

var ErrMissingCallSID = errors.New("twilio: call created without sid")

// callAPI is the part of the v2010 REST service the client uses.
type callAPI interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
}

// Client places outbound calls, ends them, and checks webhook signatures.
type Client struct {
	calls     callAPI
	validator twilioclient.RequestValidator
	logger    *observability.Logger
}

func NewClient(accountSID, authToken string, logger *observability.Logger) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Client{
		calls:     rest.Api,
		validator: twilioclient.NewRequestValidator(authToken),
		logger:    logger,
	}
}

// CreateCall dials to from the given number; Twilio fetches the call flow
// markup from callbackURL with a POST once the callee answers.
func (c *Client) CreateCall(ctx context.Context, to, from, callbackURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetUrl(callbackURL)
	params.SetMethod("POST")

	resp, err := c.calls.CreateCall(params)
	if err != nil {
		c.logger.Error(ctx, "failed to create twilio call", err)
		return "", fmt.Errorf("twilio: failed to create call: %w", err)
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return "", ErrMissingCallSID
	}

	c.logger.Info(observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: *resp.Sid}), "twilio call created")
	return *resp.Sid, nil
}

// CompleteCall hangs the call up by moving it to status completed.
func (c *Client) CompleteCall(ctx context.Context, callSID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &api.UpdateCallParams{}
	params.SetStatus(statusCompleted)

	if _, err := c.calls.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("twilio: failed to complete call %s: %w", callSID, err)
	}
	return nil
}

// ValidateSignature checks the X-Twilio-Signature of a webhook request.
func (c *Client) ValidateSignature(url string, params map[string]string, signature string) bool {
	return c.validator.Validate(url, params, signature)
}
