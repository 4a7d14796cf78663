package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/workmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/booking"
)

// BookingUseCases набор сценариев заявок, собирается в main.
type BookingUseCases struct {
	Apply          *booking.ApplyUseCase
	Transition     *booking.TransitionBookingUseCase
	Schedule       *booking.ScheduleBookingUseCase
	SetFinalAmount *booking.SetFinalAmountUseCase
	AddEvidence    *booking.AddEvidenceUseCase
	Rate           *booking.RateBookingUseCase
	AddNote        *booking.AddNoteUseCase
	FlagIssue      *booking.FlagIssueUseCase
	Get            *booking.GetBookingUseCase
	ListByListing  *booking.ListListingBookingsUseCase
	ListMine       *booking.ListMyBookingsUseCase
	CanCancel      *booking.CanCancelUseCase
	Purge          *booking.PurgeBookingUseCase
}

type BookingHandler struct {
	uc BookingUseCases
}

func NewBookingHandler(uc BookingUseCases) *BookingHandler {
	return &BookingHandler{uc: uc}
}

func (h *BookingHandler) Apply(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	rate, err := valueobject.NewMoney(req.ProposedRate)
	if err != nil {
		response.Error(c, err)
		return
	}
	var finalAmount *valueobject.Money
	if req.FinalAmount != nil {
		amount, err := valueobject.NewMoney(*req.FinalAmount)
		if err != nil {
			response.Error(c, err)
			return
		}
		finalAmount = &amount
	}

	created, err := h.uc.Apply.Execute(c.Request.Context(), booking.ApplyInput{
		ListingID:      pathID(c, "id"),
		WorkerID:       userID,
		ProposedRate:   rate,
		EstimatedHours: req.EstimatedHours,
		Message:        req.Message,
		Answers:        req.Answers,
		FinalAmount:    finalAmount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	setETag(c, created)
	response.Created(c, dto.ToBookingResponse(created))
}

func (h *BookingHandler) ListListingBookings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	statuses, err := dto.ParseStatuses(parseListQuery(c, "status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	bookings, total, err := h.uc.ListByListing.Execute(c.Request.Context(), pathID(c, "id"), userID, statuses, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToBookingResponses(bookings), total, limit, offset)
}

// ListMyBookings ?side=worker|client, по умолчанию worker.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	statuses, err := dto.ParseStatuses(parseListQuery(c, "status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	input := booking.ListMyBookingsInput{
		UserID:   userID,
		Side:     booking.Side(c.DefaultQuery("side", string(booking.SideWorker))),
		Statuses: statuses,
		Limit:    parseIntQuery(c, "limit", 20),
		Offset:   parseIntQuery(c, "offset", 0),
	}

	bookings, total, err := h.uc.ListMine.Execute(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToBookingResponses(bookings), total, input.Limit, input.Offset)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	setETag(c, b)
	response.Success(c, dto.ToBookingResponse(b))
}

func (h *BookingHandler) Transition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	expected := req.ExpectedVersion
	if expected == nil {
		if v, ok := ifMatchVersion(c); ok {
			expected = &v
		}
	}

	b, err := h.uc.Transition.Execute(c.Request.Context(), booking.TransitionInput{
		BookingID:       pathID(c, "id"),
		ActorID:         userID,
		Target:          valueobject.BookingStatus(req.Status),
		Note:            req.Note,
		ExpectedVersion: expected,
	})
	h.respond(c, b, err)
}

func (h *BookingHandler) Schedule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	b, err := h.uc.Schedule.Execute(c.Request.Context(), pathID(c, "id"), userID, req.Start, req.End)
	h.respond(c, b, err)
}

func (h *BookingHandler) SetFinalAmount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	var req dto.FinalAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	amount, err := valueobject.NewMoney(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.uc.SetFinalAmount.Execute(c.Request.Context(), pathID(c, "id"), userID, amount)
	h.respond(c, b, err)
}

func (h *BookingHandler) AddEvidence(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	var req dto.EvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	b, err := h.uc.AddEvidence.Execute(c.Request.Context(), pathID(c, "id"), userID, req.URL)
	h.respond(c, b, err)
}

func (h *BookingHandler) Rate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	var req dto.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	b, err := h.uc.Rate.Execute(c.Request.Context(), pathID(c, "id"), userID, req.Score)
	h.respond(c, b, err)
}

func (h *BookingHandler) AddNote(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	var req dto.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	b, err := h.uc.AddNote.Execute(c.Request.Context(), pathID(c, "id"), userID, req.Text)
	h.respond(c, b, err)
}

func (h *BookingHandler) FlagIssue(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}
	var req dto.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	b, err := h.uc.FlagIssue.Execute(c.Request.Context(), pathID(c, "id"), userID, req.Reason)
	h.respond(c, b, err)
}

func (h *BookingHandler) CanCancel(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	eligibility, err := h.uc.CanCancel.Execute(c.Request.Context(), pathID(c, "id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, eligibility)
}

func (h *BookingHandler) WorkDuration(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	response.Success(c, b.WorkDuration())
}

func (h *BookingHandler) Timeline(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	response.Success(c, b.Timeline())
}

func (h *BookingHandler) Purge(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	if err := h.uc.Purge.Execute(c.Request.Context(), pathID(c, "id"), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *BookingHandler) load(c *gin.Context) (*entity.Booking, bool) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return nil, false
	}
	b, err := h.uc.Get.Execute(c.Request.Context(), pathID(c, "id"), userID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return b, true
}

func (h *BookingHandler) respond(c *gin.Context, b *entity.Booking, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	setETag(c, b)
	response.Success(c, dto.ToBookingResponse(b))
}

func setETag(c *gin.Context, b *entity.Booking) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(b.Version, 10)))
}

// ifMatchVersion читает версию из заголовка If-Match: "3".
func ifMatchVersion(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.Trim(strings.TrimPrefix(raw, "W/"), `"`), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
