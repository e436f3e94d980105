package api

import (
	"net/http"

	"github.com/vencura/vencura/internal/app"
	"github.com/vencura/vencura/internal/middleware"
	"github.com/vencura/vencura/internal/validation"
	"github.com/vencura/vencura/internal/wallet"
	"github.com/vencura/vencura/pkg/types"
)

type messageResponse struct {
	Message string `json:"message"`
}

type createAccountResponse struct {
	Message string         `json:"message"`
	Account *types.Account `json:"account"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListAccounts(r.Context(), userID(r))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	address, err := addressParam(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	account, err := s.accounts.GetAccount(r.Context(), userID(r), address)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	account, err := s.accounts.CreateAccount(r.Context(), app.CreateAccountRequest{
		UserID:   userID(r),
		Alias:    req.Alias,
		Password: req.Password,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createAccountResponse{
		Message: "Account created successfully",
		Account: account,
	})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	address, err := addressParam(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := s.accounts.UpdateAccount(r.Context(), app.UpdateAccountRequest{
		UserID:           userID(r),
		Address:          address,
		Alias:            req.Alias,
		ExistingPassword: req.ExistingPassword,
		NewPassword:      req.NewPassword,
	}); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Account updated successfully"})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	address, err := addressParam(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	chainName := r.URL.Query().Get("chain")
	var errs validation.Errors
	if errs.Required("chain", chainName) {
		errs.Check("chain", validation.ValidateChain(chainName))
	}
	if err := errs.Err(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	balance, err := s.accounts.GetBalance(r.Context(), userID(r), address, chainName)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	address, err := addressParam(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	ops, err := s.accounts.GetHistory(r.Context(), userID(r), address)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

func (s *Server) handleSignMessage(w http.ResponseWriter, r *http.Request) {
	var req signMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	signature, err := s.operations.SignMessage(r.Context(), app.SignMessageRequest{
		UserID:   userID(r),
		Address:  req.Address,
		Message:  *req.Message,
		Password: req.Password,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signatureResponse{Signature: signature})
}

// handleSignTransaction returns the transaction hash under local custody
// and the provider signature under remote custody, both as "signature"
func (s *Server) handleSignTransaction(w http.ResponseWriter, r *http.Request) {
	var req signTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := s.operations.SignTransaction(r.Context(), app.SignTransactionRequest{
		UserID:  userID(r),
		Address: req.Address,
		Chain:   req.Chain,
		Transaction: wallet.TransactionInput{
			To:     req.Transaction.To,
			Amount: req.Transaction.Amount.String(),
		},
		Password: req.Password,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signatureResponse{Signature: result})
}
