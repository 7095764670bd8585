package utils

import (
	"fmt"
	"strconv"
)

// ParseIDs 把命令参数解析成一组编号, 任何一个不合法整条命令失败
func ParseIDs(parts []string) ([]int64, error) {
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("\"%s\" 不是一个有效的编号", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
