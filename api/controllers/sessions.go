package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/api/responses"
	"github.com/storemate/terminal-backend/api/validators"
	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/pkg/db/models"
	"github.com/storemate/terminal-backend/pkg/enums"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/types"
)

type sessionResponse struct {
	ID          uuid.UUID           `json:"id"`
	StoreID     string              `json:"store_id"`
	TerminalID  string              `json:"terminal_id"`
	Status      enums.SessionStatus `json:"status"`
	DocType     enums.DocType       `json:"doc_type"`
	CustomerID  *uuid.UUID          `json:"customer_id,omitempty"`
	Note        string              `json:"note,omitempty"`
	CouponCodes []string            `json:"coupon_codes,omitempty"`
	Payments    types.PaymentInputs `json:"payments,omitempty"`
	Lines       []lineResponse      `json:"lines"`
	Totals      types.Totals        `json:"totals"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type lineResponse struct {
	ID        uuid.UUID           `json:"id"`
	ProductID uuid.UUID           `json:"product_id"`
	SKU       string              `json:"sku,omitempty"`
	Name      string              `json:"name"`
	Kind      enums.LineKind      `json:"kind"`
	IMEI      string              `json:"imei,omitempty"`
	Qty       int                 `json:"qty"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
	Discount  *types.LineDiscount `json:"discount,omitempty"`
}

func sessionBody(view *cart.SessionView) sessionResponse {
	resp := sessionResponse{
		ID:          view.Session.ID,
		StoreID:     view.Session.StoreID,
		TerminalID:  view.Session.TerminalID,
		Status:      view.Session.Status,
		DocType:     view.Session.DocType,
		CustomerID:  view.Session.CustomerID,
		Note:        view.Session.Note,
		CouponCodes: view.Session.CouponCodes,
		Payments:    view.Session.Payments,
		Lines:       make([]lineResponse, 0, len(view.Session.Lines)),
		Totals:      view.Totals,
		UpdatedAt:   view.Session.UpdatedAt,
	}
	for _, line := range view.Session.Lines {
		resp.Lines = append(resp.Lines, lineBody(line))
	}
	return resp
}

func lineBody(line models.SessionLine) lineResponse {
	return lineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		SKU:       line.SKU,
		Name:      line.Name,
		Kind:      line.Kind,
		IMEI:      line.IMEI,
		Qty:       line.Qty,
		UnitPrice: line.UnitPrice,
		Discount:  line.Discount,
	}
}

func sessionIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id")
	}
	return id, nil
}

// SessionOpen starts a fresh terminal session.
func SessionOpen(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := svc.Open(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionBody(view))
	}
}

// SessionFetch returns the session with derived totals.
func SessionFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.Get(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}

type detailsPayload struct {
	CustomerID    *string  `json:"customer_id" validate:"omitempty,uuid"`
	ClearCustomer bool     `json:"clear_customer"`
	DocType       *string  `json:"doc_type" validate:"omitempty,oneof=receipt invoice credit_note"`
	Note          *string  `json:"note" validate:"omitempty,max=500"`
	CouponCodes   []string `json:"coupon_codes" validate:"omitempty,dive,min=1,max=40"`
}

// SessionUpdateDetails sets customer, document type, note, and coupons.
func SessionUpdateDetails(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload detailsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := cart.DetailsInput{
			ClearCustomer: payload.ClearCustomer,
			Note:          payload.Note,
			CouponCodes:   payload.CouponCodes,
		}
		if payload.CustomerID != nil {
			customerID, parseErr := uuid.Parse(*payload.CustomerID)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid customer id"))
				return
			}
			input.CustomerID = &customerID
		}
		if payload.DocType != nil {
			docType, parseErr := enums.ParseDocType(*payload.DocType)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid doc type"))
				return
			}
			input.DocType = &docType
		}

		view, err := svc.UpdateDetails(ctx, sessionID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}

type paymentPayload struct {
	Type      string          `json:"type" validate:"required,oneof=cash card transfer credit"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Ref       string          `json:"ref" validate:"omitempty,max=120"`
	TipAmount decimal.Decimal `json:"tip_amount"`
}

type paymentsPayload struct {
	Payments []paymentPayload `json:"payments" validate:"required,min=1,dive"`
}

// SessionSetPayments replaces the tender list for the session.
func SessionSetPayments(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload paymentsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payments := make(types.PaymentInputs, 0, len(payload.Payments))
		for _, p := range payload.Payments {
			paymentType, parseErr := enums.ParsePaymentType(p.Type)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid payment type"))
				return
			}
			payments = append(payments, types.PaymentInput{
				Type:      paymentType,
				Amount:    p.Amount,
				Ref:       p.Ref,
				TipAmount: p.TipAmount,
			})
		}

		view, err := svc.SetPayments(ctx, sessionID, payments)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}
