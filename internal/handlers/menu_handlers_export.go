package handlers

import (
	"fmt"
	"log"
	"os"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/xuri/excelize/v2"

	"memberbot/internal/db"
	"memberbot/internal/utils"
)

// sendExcelFile отправляет xlsx-файл документом и удаляет его с диска.
func (bh *BotHandler) sendExcelFile(chatID int64, filePath, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filePath))
	doc.Caption = caption
	if _, err := bh.Deps.BotClient.Send(doc); err != nil {
		log.Printf("sendExcelFile: ошибка отправки файла %s для chatID %d: %v", filePath, chatID, err)
		bh.sendErrorMessageHelper(chatID, 0, "❌ Ошибка при отправке Excel-файла.")
	}
	if errRemove := os.Remove(filePath); errRemove != nil {
		log.Printf("sendExcelFile: ошибка удаления временного файла %s: %v", filePath, errRemove)
	}
}

// generateAndSendExportExcel собирает отчет по пользователям, заявкам и
// переводам в один xlsx и отправляет его администратору.
func (bh *BotHandler) generateAndSendExportExcel(chatID int64, messageIDToEdit int) {
	f := excelize.NewFile()

	if err := bh.fillUsersSheet(f); err != nil {
		log.Printf("generateAndSendExportExcel: ошибка листа пользователей: %v", err)
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Ошибка при выгрузке пользователей.")
		return
	}
	if err := bh.fillRequestsSheet(f); err != nil {
		log.Printf("generateAndSendExportExcel: ошибка листа заявок: %v", err)
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Ошибка при выгрузке заявок.")
		return
	}
	if err := bh.fillTransfersSheet(f); err != nil {
		log.Printf("generateAndSendExportExcel: ошибка листа переводов: %v", err)
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Ошибка при выгрузке переводов.")
		return
	}
	f.DeleteSheet("Sheet1")

	filePath := fmt.Sprintf("export_%s.xlsx", timeNow().Format("20060102_150405"))
	if errSave := f.SaveAs(filePath); errSave != nil {
		log.Printf("generateAndSendExportExcel: ошибка сохранения файла: %v", errSave)
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Ошибка при создании Excel-файла.")
		return
	}

	bh.sendExcelFile(chatID, filePath, "Выгрузка данных за "+timeNow().Format("02.01.2006"))
	if messageIDToEdit != 0 {
		bh.deleteMessageHelper(chatID, messageIDToEdit)
	}
	bh.SendAdminMenu(chatID, 0)
}

func (bh *BotHandler) fillUsersSheet(f *excelize.File) error {
	users, err := db.GetAllUsers()
	if err != nil {
		return err
	}

	sheetName := "Пользователи"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headers := []string{"Chat ID", "Никнейм", "Имя", "Баллы", "Рефералов", "Админ", "Заблокирован", "Дата регистрации"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	rowIndex := 2
	for _, u := range users {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIndex), u.ChatID)
		if u.Username.Valid {
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), "@"+u.Username.String)
		}
		name := u.FirstName
		if u.LastName.Valid && u.LastName.String != "" {
			name += " " + u.LastName.String
		}
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), name)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), u.Points)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIndex), u.Referrals)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowIndex), boolToRu(u.IsAdmin))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowIndex), boolToRu(u.IsBanned))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowIndex), u.CreatedAt.Format("02.01.2006 15:04"))
		rowIndex++
	}
	return nil
}

func (bh *BotHandler) fillRequestsSheet(f *excelize.File) error {
	requests, err := db.GetAllFundingRequests()
	if err != nil {
		return err
	}

	sheetName := "Заявки"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headers := []string{"ID", "Заказчик", "Цель", "Тип", "Запрошено", "Добавлено", "Стоимость", "Статус", "Создана"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	rowIndex := 2
	for _, r := range requests {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIndex), r.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), r.UserChatID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), r.TargetChannel)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), r.TargetType)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIndex), r.RequestedMembers)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowIndex), r.CompletedMembers)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowIndex), r.PointsCost)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowIndex), utils.GetStatusDisplayName(r.Status))
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", rowIndex), r.CreatedAt.Format("02.01.2006 15:04"))
		rowIndex++
	}
	return nil
}

func (bh *BotHandler) fillTransfersSheet(f *excelize.File) error {
	transfers, err := db.GetAllTransfers()
	if err != nil {
		return err
	}

	sheetName := "Переводы"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headers := []string{"UID", "Отправитель", "Получатель", "Сумма", "Комиссия", "Дата"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	rowIndex := 2
	for _, t := range transfers {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIndex), t.TransferUID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), t.FromChatID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), t.ToChatID)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), t.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIndex), t.FeeAmount)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowIndex), t.TransferDate.Format("02.01.2006 15:04"))
		rowIndex++
	}
	return nil
}

func boolToRu(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}
