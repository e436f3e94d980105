package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vencura/vencura/internal/middleware"
	"github.com/vencura/vencura/internal/validation"
	apperrors "github.com/vencura/vencura/pkg/errors"
)

var (
	errNotFound         = apperrors.New(apperrors.ErrCodeNotFound, "Not found", http.StatusNotFound)
	errMethodNotAllowed = apperrors.New(apperrors.ErrCodeBadRequest, "Method not allowed", http.StatusMethodNotAllowed)
	errBodyTooLarge     = apperrors.New(apperrors.ErrCodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
	errInvalidJSON      = apperrors.BadRequest("Invalid JSON body")
)

// decodeJSON reads the request body into v. Unknown fields are ignored.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return apperrors.BadRequest("Request body is required")
		default:
			return errInvalidJSON
		}
	}
	return nil
}

// addressParam returns the validated {address} path parameter
func addressParam(r *http.Request) (string, error) {
	address := chi.URLParam(r, "address")
	var errs validation.Errors
	errs.Check("address", validation.ValidateEthereumAddress(address))
	if err := errs.Err(); err != nil {
		return "", err
	}
	return address, nil
}

func userID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

type createAccountRequest struct {
	Alias    string `json:"alias"`
	Password string `json:"password"`
}

func (req *createAccountRequest) validate() error {
	var errs validation.Errors
	if errs.Required("alias", req.Alias) {
		errs.Check("alias", validation.ValidateAlias(req.Alias))
	}
	if errs.Required("password", req.Password) {
		errs.Check("password", validation.ValidatePassword(req.Password))
	}
	return errs.Err()
}

type updateAccountRequest struct {
	Alias            *string `json:"alias"`
	ExistingPassword string  `json:"existingPassword"`
	NewPassword      string  `json:"newPassword"`
}

func (req *updateAccountRequest) validate() error {
	var errs validation.Errors
	if req.Alias != nil {
		errs.Check("alias", validation.ValidateAlias(*req.Alias))
	}
	if req.ExistingPassword != "" {
		errs.Check("existingPassword", validation.ValidatePassword(req.ExistingPassword))
	}
	if req.NewPassword != "" {
		errs.Check("newPassword", validation.ValidatePassword(req.NewPassword))
	}
	if (req.ExistingPassword == "") != (req.NewPassword == "") {
		errs.Check("password", errors.New("existingPassword and newPassword must be provided together"))
	}
	if err := errs.Err(); err != nil {
		return err
	}
	if req.Alias == nil && req.ExistingPassword == "" {
		return apperrors.BadRequest("Nothing to update")
	}
	return nil
}

type signMessageRequest struct {
	Message  *string `json:"message"`
	Address  string  `json:"address"`
	Password string  `json:"password"`
}

func (req *signMessageRequest) validate() error {
	var errs validation.Errors
	if req.Message == nil {
		errs.Required("message", "")
	}
	if errs.Required("address", req.Address) {
		errs.Check("address", validation.ValidateEthereumAddress(req.Address))
	}
	if errs.Required("password", req.Password) {
		errs.Check("password", validation.ValidatePassword(req.Password))
	}
	return errs.Err()
}

type transactionBody struct {
	To     string            `json:"to"`
	Amount validation.Amount `json:"amount"`
}

type signTransactionRequest struct {
	Transaction *transactionBody `json:"transaction"`
	Chain       string           `json:"chain"`
	Address     string           `json:"address"`
	Password    string           `json:"password"`
}

func (req *signTransactionRequest) validate() error {
	var errs validation.Errors
	if req.Transaction == nil {
		errs.Required("transaction", "")
	} else {
		if errs.Required("transaction.to", req.Transaction.To) {
			errs.Check("transaction.to", validation.ValidateRecipient(req.Transaction.To))
		}
		if errs.Required("transaction.amount", req.Transaction.Amount.String()) {
			errs.Check("transaction.amount", validation.ValidateAmount(req.Transaction.Amount.String()))
		}
	}
	if errs.Required("chain", req.Chain) {
		errs.Check("chain", validation.ValidateChain(req.Chain))
	}
	if errs.Required("address", req.Address) {
		errs.Check("address", validation.ValidateEthereumAddress(req.Address))
	}
	if errs.Required("password", req.Password) {
		errs.Check("password", validation.ValidatePassword(req.Password))
	}
	return errs.Err()
}
