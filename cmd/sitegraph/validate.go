package main

import (
	"fmt"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
)

// ValidateSaveArgs 验证 save 命令的参数组合
// 起始URL和 --url-file 必须且只能指定一个
func ValidateSaveArgs(startURL, urlFile string, batchDelay int) error {
	switch {
	case startURL == "" && urlFile == "":
		return fmt.Errorf("需要指定起始URL或 --url-file")
	case startURL != "" && urlFile != "":
		return fmt.Errorf("起始URL和 --url-file 不能同时指定")
	}

	if startURL != "" {
		if err := models.ValidateURL(startURL); err != nil {
			return fmt.Errorf("无效的起始URL: %w", err)
		}
	}

	if batchDelay < 0 || batchDelay > 3600 {
		return fmt.Errorf("批量延迟必须在0-3600秒之间,当前值: %d", batchDelay)
	}
	return nil
}
