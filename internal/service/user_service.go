package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"levelhub/internal/dto"
	"levelhub/internal/model"
	"levelhub/internal/repository"
)

// userSearchLimit 用户搜索最多返回条数
const userSearchLimit = 20

// UserService 用户业务接口
type UserService interface {
	// Search 按用户名或姓名模糊查找，排除管理员与调用者本人
	Search(ctx context.Context, ident Identity, phrase string) ([]dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) Search(ctx context.Context, ident Identity, phrase string) ([]dto.UserResponse, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return []dto.UserResponse{}, nil
	}

	users, err := s.repo.User.Search(ctx, phrase, ident.UserID, userSearchLimit)
	if err != nil {
		s.logger.Error("搜索用户失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp := toUserResponse(&users[i])
		resp.Email = "" // 搜索结果不暴露邮箱
		result = append(result, resp)
	}
	return result, nil
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName(),
		Email:       u.Email,
		Website:     u.Website,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt.UTC().Format(dto.TimeLayout),
	}
}
