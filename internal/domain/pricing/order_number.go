package pricing

import (
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOrderNumber は "RW" + エポックミリ秒の下8桁 + base36の4文字。
// 一意性はDBのunique indexで担保し、ここでは衝突しにくいだけ。
// randIntN は [0,n) を返す関数（テストでは固定値を渡す）。
func GenerateOrderNumber(now time.Time, randIntN func(n int) int) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	} else {
		ms = strings.Repeat("0", 8-len(ms)) + ms
	}

	var b strings.Builder
	b.Grow(14)
	b.WriteString("RW")
	b.WriteString(ms)
	for i := 0; i < 4; i++ {
		b.WriteByte(base36[randIntN(len(base36))])
	}
	return b.String()
}
