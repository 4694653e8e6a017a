package db

import (
	"database/sql"
	"log"

	"memberbot/internal/models"
)

// AddGroupSource добавляет группу-источник. Повторное добавление того же
// group_id обновляет название и активирует группу.
func AddGroupSource(groupID, groupTitle string, adminChatID int64) (models.GroupSource, error) {
	var g models.GroupSource
	err := DB.QueryRow(`
        INSERT INTO group_sources (group_id, group_title, is_active, added_by_admin, created_at)
        VALUES ($1, $2, TRUE, $3, NOW())
        ON CONFLICT (group_id) DO UPDATE SET
            group_title = EXCLUDED.group_title,
            is_active = TRUE
        RETURNING id, group_id, group_title, is_active, member_count, added_by_admin, created_at`,
		groupID, groupTitle, adminChatID).
		Scan(&g.ID, &g.GroupID, &g.GroupTitle, &g.IsActive, &g.MemberCount, &g.AddedByAdmin, &g.CreatedAt)
	if err != nil {
		log.Printf("AddGroupSource: ошибка добавления группы %s: %v", groupID, err)
		return g, err
	}
	log.Printf("Группа-источник %s ('%s') добавлена администратором %d.", groupID, groupTitle, adminChatID)
	return g, nil
}

// GetActiveGroupSources возвращает активные группы-источники в порядке
// добавления. Порядок стабилен между перезапусками: воркер опирается на него
// для воспроизводимого обхода пулов.
func GetActiveGroupSources() ([]models.GroupSource, error) {
	rows, err := DB.Query(`
        SELECT id, group_id, group_title, is_active, member_count, added_by_admin, created_at
        FROM group_sources WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		log.Printf("GetActiveGroupSources: ошибка получения групп-источников: %v", err)
		return nil, err
	}
	defer rows.Close()

	var groups []models.GroupSource
	for rows.Next() {
		var g models.GroupSource
		if errScan := rows.Scan(&g.ID, &g.GroupID, &g.GroupTitle, &g.IsActive, &g.MemberCount,
			&g.AddedByAdmin, &g.CreatedAt); errScan != nil {
			log.Printf("GetActiveGroupSources: ошибка сканирования группы: %v", errScan)
			continue
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetAllGroupSources возвращает все группы-источники для админ-меню.
func GetAllGroupSources() ([]models.GroupSource, error) {
	rows, err := DB.Query(`
        SELECT id, group_id, group_title, is_active, member_count, added_by_admin, created_at
        FROM group_sources ORDER BY id`)
	if err != nil {
		log.Printf("GetAllGroupSources: ошибка получения групп-источников: %v", err)
		return nil, err
	}
	defer rows.Close()

	var groups []models.GroupSource
	for rows.Next() {
		var g models.GroupSource
		if errScan := rows.Scan(&g.ID, &g.GroupID, &g.GroupTitle, &g.IsActive, &g.MemberCount,
			&g.AddedByAdmin, &g.CreatedAt); errScan != nil {
			log.Printf("GetAllGroupSources: ошибка сканирования группы: %v", errScan)
			continue
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// SetGroupSourceActive включает или выключает группу-источник.
func SetGroupSourceActive(id int64, active bool) error {
	res, err := DB.Exec("UPDATE group_sources SET is_active = $1 WHERE id = $2", active, id)
	if err != nil {
		log.Printf("SetGroupSourceActive: ошибка изменения активности группы #%d: %v", id, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	log.Printf("Группа-источник #%d: активность установлена в %v.", id, active)
	return nil
}

// DeleteGroupSource удаляет группу-источник.
func DeleteGroupSource(id int64) error {
	res, err := DB.Exec("DELETE FROM group_sources WHERE id = $1", id)
	if err != nil {
		log.Printf("DeleteGroupSource: ошибка удаления группы #%d: %v", id, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	log.Printf("Группа-источник #%d удалена.", id)
	return nil
}

// UpdateGroupSourceMemberCount обновляет справочный счетчик участников.
// Счетчик не участвует в бизнес-логике, поэтому ошибки здесь только логируются вызывающим.
func UpdateGroupSourceMemberCount(id int64, memberCount int) error {
	_, err := DB.Exec("UPDATE group_sources SET member_count = $1 WHERE id = $2", memberCount, id)
	if err != nil {
		log.Printf("UpdateGroupSourceMemberCount: ошибка обновления счетчика группы #%d: %v", id, err)
	}
	return err
}
