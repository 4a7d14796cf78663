package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/workmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/listing"
)

type ListingHandler struct {
	createUC     *listing.CreateListingUseCase
	publishUC    *listing.PublishListingUseCase
	cancelUC     *listing.CancelListingUseCase
	deleteUC     *listing.DeleteListingUseCase
	getUC        *listing.GetListingUseCase
	listUC       *listing.ListListingsUseCase
	recordViewUC *listing.RecordViewUseCase
	candidatesUC *listing.RankCandidatesUseCase
}

func NewListingHandler(
	createUC *listing.CreateListingUseCase,
	publishUC *listing.PublishListingUseCase,
	cancelUC *listing.CancelListingUseCase,
	deleteUC *listing.DeleteListingUseCase,
	getUC *listing.GetListingUseCase,
	listUC *listing.ListListingsUseCase,
	recordViewUC *listing.RecordViewUseCase,
	candidatesUC *listing.RankCandidatesUseCase,
) *ListingHandler {
	return &ListingHandler{
		createUC:     createUC,
		publishUC:    publishUC,
		cancelUC:     cancelUC,
		deleteUC:     deleteUC,
		getUC:        getUC,
		listUC:       listUC,
		recordViewUC: recordViewUC,
		candidatesUC: candidatesUC,
	}
}

func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	input, err := req.ToInput(userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.createUC.Execute(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToListingResponse(created))
}

func (h *ListingHandler) GetListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	l, err := h.getUC.Execute(c.Request.Context(), pathID(c, "id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToListingResponse(l))
}

// ListListings ?mine=true показывает объявления текущего пользователя во всех статусах.
func (h *ListingHandler) ListListings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	filter := repository.ListingFilter{
		Skills:   parseListQuery(c, "skills"),
		City:     c.Query("city"),
		Province: c.Query("province"),
		Category: c.Query("category"),
		Limit:    parseIntQuery(c, "limit", 20),
		Offset:   parseIntQuery(c, "offset", 0),
	}
	for _, raw := range parseListQuery(c, "status") {
		status, err := valueobject.NewListingStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if c.Query("mine") == "true" {
		filter.OwnerID = &userID
	} else if len(filter.Statuses) == 0 || containsDraft(filter.Statuses) {
		// черновики чужих объявлений не отдаём
		filter.Statuses = []valueobject.ListingStatus{valueobject.ListingStatusOpen}
	}

	listings, total, err := h.listUC.Execute(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToListingResponses(listings), total, filter.Limit, filter.Offset)
}

func containsDraft(statuses []valueobject.ListingStatus) bool {
	for _, s := range statuses {
		if s == valueobject.ListingStatusDraft {
			return true
		}
	}
	return false
}

func (h *ListingHandler) PublishListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	l, err := h.publishUC.Execute(c.Request.Context(), pathID(c, "id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToListingResponse(l))
}

func (h *ListingHandler) CancelListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	l, err := h.cancelUC.Execute(c.Request.Context(), pathID(c, "id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToListingResponse(l))
}

func (h *ListingHandler) DeleteListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), pathID(c, "id"), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func (h *ListingHandler) RecordView(c *gin.Context) {
	views, err := h.recordViewUC.Execute(c.Request.Context(), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ViewsResponse{ViewsCount: views})
}

func (h *ListingHandler) RankCandidates(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	matches, err := h.candidatesUC.Execute(c.Request.Context(), listing.RankCandidatesInput{
		ListingID: pathID(c, "id"),
		ActorID:   userID,
		Limit:     parseIntQuery(c, "limit", 20),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToCandidateResponses(matches))
}
