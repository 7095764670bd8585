package utils

import (
	"fmt"
	"slices"

	"github.com/sx120609/Nishikigi/config"
)

// IsModerator 检查用户是否有权限执行审核操作
func IsModerator(userID int64, roles []string) bool {
	botConfig := config.Cfg.Bot

	// 检查是否在管理员名单里
	if slices.Contains(botConfig.Moderators, fmt.Sprintf("%d", userID)) {
		return true
	}

	// 检查是否拥有管理员角色
	for _, role := range roles {
		if slices.Contains(botConfig.ModeratorRoles, role) {
			return true
		}
	}

	return false
}
