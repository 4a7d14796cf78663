package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/workmarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/workmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/report"
)

type ReportHandler struct {
	summaryUC *report.MarketplaceSummaryUseCase
}

func NewReportHandler(summaryUC *report.MarketplaceSummaryUseCase) *ReportHandler {
	return &ReportHandler{summaryUC: summaryUC}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	summary, err := h.summaryUC.Execute(c.Request.Context(), userID, parseIntQuery(c, "top", report.DefaultCategories))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToSummaryResponse(summary))
}
