package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/RovierrHQ/rovierr/internal/ledger"
	"github.com/RovierrHQ/rovierr/internal/middleware"
	"github.com/RovierrHQ/rovierr/internal/models"
	"github.com/RovierrHQ/rovierr/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportHandler serves the club ledger report and its CSV/XLSX exports.
type ReportHandler struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{DB: db, Ledger: ledger.NewService(db)}
}

func (h *ReportHandler) clubFilter(c *gin.Context) (uint, ledger.ReportFilter, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return 0, ledger.ReportFilter{}, false
	}

	clubID, err := pathID(c, "id")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid club id")
		return 0, ledger.ReportFilter{}, false
	}

	var count int64
	h.DB.Model(&models.ClubMember{}).
		Where("club_id = ? AND user_id = ?", clubID, user.ID).
		Count(&count)
	if count == 0 {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "not a member of this club")
		return 0, ledger.ReportFilter{}, false
	}

	filter := ledger.ReportFilter{
		CategoryID: uintQuery(c, "category_id"),
		EventID:    uintQuery(c, "event_id"),
		Page:       intQuery(c, "page", 1),
		Limit:      intQuery(c, "limit", 20),
	}
	filter.From, filter.To, err = dateRange(c)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid date, expected YYYY-MM-DD")
		return 0, ledger.ReportFilter{}, false
	}
	return clubID, filter, true
}

// ClubLedger returns the income/expense summary and matching transactions.
func (h *ReportHandler) ClubLedger(c *gin.Context) {
	clubID, filter, ok := h.clubFilter(c)
	if !ok {
		return
	}

	report, err := h.Ledger.ClubLedger(clubID, filter)
	if err != nil {
		ledgerError(c, err)
		return
	}
	util.Success(c, util.Response{"report": report})
}

var exportHeader = []string{"Date", "Type", "Description", "Amount", "Currency", "Status"}

// ExportCSV streams the club ledger as CSV.
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	clubID, filter, ok := h.clubFilter(c)
	if !ok {
		return
	}
	filter.Limit = 100
	filter.Page = intQuery(c, "page", 1)

	report, err := h.Ledger.ClubLedger(clubID, filter)
	if err != nil {
		ledgerError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"ledger_%d_%s.csv\"",
		clubID, time.Now().Format("20060102")))

	// UTF-8 BOM for spreadsheet apps
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeader)
	for _, t := range report.Transactions {
		writer.Write([]string{
			t.OccurredAt.Format("2006-01-02"),
			t.Type,
			t.Description,
			t.TotalAmount.StringFixed(2),
			t.Currency,
			t.ReimbursementStatus,
		})
	}
	writer.Write([]string{"", "", "Total income", report.TotalIncome.StringFixed(2), "", ""})
	writer.Write([]string{"", "", "Total expenses", report.TotalExpenses.StringFixed(2), "", ""})
	writer.Write([]string{"", "", "Net balance", report.NetBalance.StringFixed(2), "", ""})
}

// ExportXLSX streams the club ledger as an XLSX workbook.
func (h *ReportHandler) ExportXLSX(c *gin.Context) {
	clubID, filter, ok := h.clubFilter(c)
	if !ok {
		return
	}
	filter.Limit = 100
	filter.Page = intQuery(c, "page", 1)

	report, err := h.Ledger.ClubLedger(clubID, filter)
	if err != nil {
		ledgerError(c, err)
		return
	}

	f := excelize.NewFile()
	sheetName := "Club Ledger"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create sheet")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, head := range exportHeader {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, head)
	}

	row := 2
	for _, t := range report.Transactions {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), t.OccurredAt.Format("2006-01-02"))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), t.Type)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), t.Description)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), t.TotalAmount.StringFixed(2))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), t.Currency)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), t.ReimbursementStatus)
		row++
	}

	row++
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "Total income")
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), report.TotalIncome.StringFixed(2))
	row++
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "Total expenses")
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), report.TotalExpenses.StringFixed(2))
	row++
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "Net balance")
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), report.NetBalance.StringFixed(2))

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "C", 32)
	f.SetColWidth(sheetName, "D", "D", 12)
	f.SetColWidth(sheetName, "E", "E", 10)
	f.SetColWidth(sheetName, "F", "F", 10)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"ledger_%d_%s.xlsx\"",
		clubID, time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "export failed")
	}
}
