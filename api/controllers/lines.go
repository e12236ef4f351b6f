package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/api/responses"
	"github.com/storemate/terminal-backend/api/validators"
	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/pkg/enums"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/types"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

var percentCeiling = decimal.NewFromInt(100)

type addLinePayload struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	SKU       string          `json:"sku" validate:"omitempty,max=64"`
	Name      string          `json:"name" validate:"required,max=200"`
	IMEI      string          `json:"imei" validate:"omitempty,max=32"`
	Qty       int             `json:"qty" validate:"omitempty,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

type discountPayload struct {
	Type  string          `json:"type" validate:"required,oneof=percent amount"`
	Value decimal.Decimal `json:"value" validate:"required"`
}

type updateLinePayload struct {
	Qty           *int             `json:"qty"`
	Discount      *discountPayload `json:"discount"`
	ClearDiscount bool             `json:"clear_discount"`
	PriceOverride *decimal.Decimal `json:"price_override"`
}

func lineIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "lineId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id")
	}
	return id, nil
}

// LineAdd scans a product into the cart. Generic products merge into an
// existing row; serialized units always make a new one.
func LineAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload addLinePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		qty := payload.Qty
		if qty == 0 {
			qty = 1
		}

		view, err := svc.AddLine(ctx, sessionID, cart.AddLineInput{
			ProductID: productID,
			SKU:       payload.SKU,
			Name:      payload.Name,
			IMEI:      payload.IMEI,
			Qty:       qty,
			UnitPrice: payload.UnitPrice,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}

// LineUpdate changes quantity, discount, or price on one line. Discounts and
// price overrides are supervisor actions and must carry an audit reason.
func LineUpdate(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
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
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateLinePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if payload.Discount != nil || payload.PriceOverride != nil {
			if upstream.ReasonFromContext(ctx) == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeReasonMissing, "X-Reason header required for discounts and price overrides"))
				return
			}
		}

		input := cart.UpdateLineInput{
			Qty:           payload.Qty,
			ClearDiscount: payload.ClearDiscount,
			PriceOverride: payload.PriceOverride,
		}
		if payload.Discount != nil {
			discountType, parseErr := enums.ParseDiscountType(payload.Discount.Type)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid discount type"))
				return
			}
			if discountType == enums.DiscountTypePercent && payload.Discount.Value.GreaterThan(percentCeiling) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "percent discount cannot exceed 100"))
				return
			}
			input.Discount = &types.LineDiscount{
				Type:  discountType,
				Value: payload.Discount.Value,
			}
		}

		view, err := svc.UpdateLine(ctx, sessionID, lineID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}

// LineRemove deletes one line from the cart.
func LineRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
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
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.RemoveLine(ctx, sessionID, lineID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}

// CartClear drops every line while keeping the session open.
func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
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
		view, err := svc.ClearCart(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}
