package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/plantcare/api/transport"
	"github.com/fastygo/plantcare/domain"
	"github.com/fastygo/plantcare/pkg/httpcontext"
	plantUC "github.com/fastygo/plantcare/usecase/plant"
)

type PlantHandler struct {
	baseHandler
	uc *plantUC.UseCase
}

func NewPlantHandler(uc *plantUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *PlantHandler {
	return &PlantHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List plants
// @Tags plants
// @Router /api/plants [get]
func (h *PlantHandler) ListPlants(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.respondSuccess(ctx, http.StatusOK, h.uc.ListPlants(stdCtx))
}

// @Summary Add plant
// @Tags plants
// @Router /api/plants [post]
func (h *PlantHandler) CreatePlant(ctx *fasthttp.RequestCtx) {
	in, ok := h.parsePlant(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.AddPlant(stdCtx, in)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Get plant
// @Tags plants
// @Router /api/plants/{id} [get]
func (h *PlantHandler) GetPlant(ctx *fasthttp.RequestCtx) {
	id, ok := h.plantID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	p, err := h.uc.GetPlant(stdCtx, id)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, p)
}

// @Summary Update plant
// @Tags plants
// @Router /api/plants/{id} [put]
func (h *PlantHandler) UpdatePlant(ctx *fasthttp.RequestCtx) {
	id, ok := h.plantID(ctx)
	if !ok {
		return
	}
	in, ok := h.parsePlant(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdatePlant(stdCtx, id, in)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete plant
// @Tags plants
// @Router /api/plants/{id} [delete]
func (h *PlantHandler) DeletePlant(ctx *fasthttp.RequestCtx) {
	id, ok := h.plantID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeletePlant(stdCtx, id); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Mark plant watered today
// @Tags plants
// @Router /api/plants/{id}/water [post]
func (h *PlantHandler) Water(ctx *fasthttp.RequestCtx) {
	h.care(ctx, h.uc.MarkWatered)
}

// @Summary Mark plant fertilized today
// @Tags plants
// @Router /api/plants/{id}/fertilize [post]
func (h *PlantHandler) Fertilize(ctx *fasthttp.RequestCtx) {
	h.care(ctx, h.uc.MarkFertilized)
}

func (h *PlantHandler) care(ctx *fasthttp.RequestCtx, mark func(context.Context, string) (*domain.Plant, error)) {
	id, ok := h.plantID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := mark(stdCtx, id)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Upload plant photo
// @Tags plants
// @Accept multipart/form-data
// @Router /api/plants/{id}/images [post]
func (h *PlantHandler) UploadImage(ctx *fasthttp.RequestCtx) {
	id, ok := h.plantID(ctx)
	if !ok {
		return
	}

	boundary := string(ctx.Request.Header.MultipartFormBoundary())
	if boundary == "" {
		h.respondInvalid(ctx, "expected multipart/form-data body")
		return
	}

	var body io.Reader = ctx.RequestBodyStream()
	if body == nil {
		body = bytes.NewReader(ctx.PostBody())
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.AttachImage(stdCtx, id, multipart.NewReader(body, boundary))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Care history
// @Tags plants
// @Router /api/plants/{id}/history [get]
func (h *PlantHandler) History(ctx *fasthttp.RequestCtx) {
	id, ok := h.plantID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.uc.History(stdCtx, id)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}

func (h *PlantHandler) parsePlant(ctx *fasthttp.RequestCtx) (plantUC.Input, bool) {
	var req transport.PlantRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, domain.ErrInvalidPayload.Message)
		return plantUC.Input{}, false
	}
	return plantUC.Input{
		Name:                     req.Name,
		WateringFrequencyDays:    req.WateringFrequencyDays,
		FertilizingFrequencyDays: req.FertilizingFrequencyDays,
	}, true
}
