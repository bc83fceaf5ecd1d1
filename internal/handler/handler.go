// Package handler exposes the attendance service over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance/internal/attendance"
	"attendance/internal/directory"
	"attendance/internal/metrics"
)

// StudentDirectory lists and fetches directory entries for the read-only
// student endpoints.
type StudentDirectory interface {
	List(ctx context.Context) ([]directory.Student, error)
	Get(ctx context.Context, studentID string) (*directory.Student, error)
}

// Handler holds the dependencies for the HTTP routes.
type Handler struct {
	svc      *attendance.Service
	students StudentDirectory
}

// New creates a handler.
func New(svc *attendance.Service, students StudentDirectory) *Handler {
	return &Handler{svc: svc, students: students}
}

// timeLayouts accepted in admin corrections, tried in order.
var timeLayouts = []string{"2006-01-02 15:04:05", time.RFC3339}

func (h *Handler) parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, h.svc.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized time format")
}

// errStatus maps service errors to HTTP statuses. Duplicate check-ins are
// 400 rather than 409 to match the original API contract.
func errStatus(err error) int {
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}

type studentIDRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// CheckIn opens a session for a student.
func (h *Handler) CheckIn(c *gin.Context) {
	var req studentIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.CheckIn(c.Request.Context(), req.StudentID)
	if err != nil {
		if errors.Is(err, attendance.ErrConflict) {
			metrics.DuplicateCheckIns.Inc()
		}
		abortWithError(c, err)
		return
	}

	metrics.CheckIns.Inc()
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Checked in successfully",
		"attendance": rec,
	})
}

// CheckOut closes the student's open session for today.
func (h *Handler) CheckOut(c *gin.Context) {
	var req studentIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.CheckOut(c.Request.Context(), req.StudentID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	metrics.CheckOuts.Inc()
	c.JSON(http.StatusOK, gin.H{
		"message":    "Checked out successfully",
		"attendance": rec,
	})
}

// ListAttendance returns every attendance record.
func (h *Handler) ListAttendance(c *gin.Context) {
	records, err := h.svc.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

type filterRequest struct {
	Type string `json:"type" binding:"required"`
	Date string `json:"date" binding:"required"`
}

// FilterAttendance returns records in the daily, monthly or yearly window
// around the reference date.
func (h *Handler) FilterAttendance(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	records, err := h.svc.FilterByDate(c.Request.Context(), req.Type, req.Date)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

type updateRequest struct {
	TimeIn  *string `json:"time_in"`
	TimeOut *string `json:"time_out"`
}

// UpdateAttendance overwrites timestamps on a record. This is the manual
// correction endpoint and deliberately bypasses the session state machine.
func (h *Handler) UpdateAttendance(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var timeIn, timeOut *time.Time
	if req.TimeIn != nil {
		t, err := h.parseTime(*req.TimeIn)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "time_in: " + err.Error()})
			return
		}
		timeIn = &t
	}
	if req.TimeOut != nil {
		t, err := h.parseTime(*req.TimeOut)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "time_out: " + err.Error()})
			return
		}
		timeOut = &t
	}

	rec, err := h.svc.AdminUpdate(c.Request.Context(), c.Param("id"), timeIn, timeOut)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Attendance updated successfully",
		"attendance": rec,
	})
}

// DeleteAttendance removes a record by id.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}

// ListStudents returns the full student directory.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if students == nil {
		students = []directory.Student{}
	}
	c.JSON(http.StatusOK, students)
}

// GetStudent returns one directory entry by student identifier.
func (h *Handler) GetStudent(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if student == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusOK, student)
}
