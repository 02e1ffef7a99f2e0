package im

import (
	"Portal/internal/api/dto"
	"Portal/internal/model"

	"github.com/jinzhu/copier"
)

func ToMessageDTO(m *model.Message) *dto.MessageDTO {
	d := &dto.MessageDTO{}
	_ = copier.Copy(d, m)
	if m.Sender != nil {
		d.Sender = &dto.SenderDTO{ID: m.Sender.ID, Name: m.Sender.DisplayName(), Role: m.Sender.Role}
	}
	return d
}

func ToMessageSummaryDTO(d *dto.MessageDTO) *dto.MessageSummaryDTO {
	s := &dto.MessageSummaryDTO{}
	_ = copier.Copy(s, d)
	return s
}

func ToParticipantDTOs(users []model.User) []*dto.ParticipantDTO {
	res := make([]*dto.ParticipantDTO, 0, len(users))
	for i := range users {
		res = append(res, &dto.ParticipantDTO{ID: users[i].ID, Name: users[i].DisplayName(), Role: users[i].Role})
	}
	return res
}
