package db

import (
	"database/sql"
	"log"

	"memberbot/internal/models"
)

// AddChannel добавляет канал обязательной подписки.
func AddChannel(channelID, channelTitle string, adminChatID int64) (models.Channel, error) {
	var c models.Channel
	err := DB.QueryRow(`
        INSERT INTO channels (channel_id, channel_title, is_mandatory, added_by_admin, created_at)
        VALUES ($1, $2, TRUE, $3, NOW())
        ON CONFLICT (channel_id) DO UPDATE SET
            channel_title = EXCLUDED.channel_title,
            is_mandatory = TRUE
        RETURNING id, channel_id, channel_title, is_mandatory, added_by_admin, created_at`,
		channelID, channelTitle, adminChatID).
		Scan(&c.ID, &c.ChannelID, &c.ChannelTitle, &c.IsMandatory, &c.AddedByAdmin, &c.CreatedAt)
	if err != nil {
		log.Printf("AddChannel: ошибка добавления канала %s: %v", channelID, err)
		return c, err
	}
	log.Printf("Канал %s ('%s') добавлен администратором %d.", channelID, channelTitle, adminChatID)
	return c, nil
}

// GetMandatoryChannels возвращает каналы обязательной подписки.
func GetMandatoryChannels() ([]models.Channel, error) {
	rows, err := DB.Query(`
        SELECT id, channel_id, channel_title, is_mandatory, added_by_admin, created_at
        FROM channels WHERE is_mandatory = TRUE ORDER BY id`)
	if err != nil {
		log.Printf("GetMandatoryChannels: ошибка получения каналов: %v", err)
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var c models.Channel
		if errScan := rows.Scan(&c.ID, &c.ChannelID, &c.ChannelTitle, &c.IsMandatory,
			&c.AddedByAdmin, &c.CreatedAt); errScan != nil {
			log.Printf("GetMandatoryChannels: ошибка сканирования канала: %v", errScan)
			continue
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// DeleteChannel удаляет канал обязательной подписки.
func DeleteChannel(id int64) error {
	res, err := DB.Exec("DELETE FROM channels WHERE id = $1", id)
	if err != nil {
		log.Printf("DeleteChannel: ошибка удаления канала #%d: %v", id, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	log.Printf("Канал #%d удален.", id)
	return nil
}
