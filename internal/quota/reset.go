package quota

import (
	"fmt"
	"strings"
	"time"
)

// ResetMethod 对应套餐的流量重置策略。
type ResetMethod int

const (
	// ResetMonthFirstDay 每月 1 号重置。
	ResetMonthFirstDay ResetMethod = 0
	// ResetExpireDay 每月到期日重置。
	ResetExpireDay ResetMethod = 1
	// ResetNever 不重置。
	ResetNever ResetMethod = 2
	// ResetYearFirstDay 每年 1 月 1 日重置。
	ResetYearFirstDay ResetMethod = 3
	// ResetYearExpireDay 每年到期日重置。
	ResetYearExpireDay ResetMethod = 4
)

func (m ResetMethod) String() string {
	switch m {
	case ResetMonthFirstDay:
		return "month_first_day"
	case ResetExpireDay:
		return "expire_day"
	case ResetNever:
		return "never"
	case ResetYearFirstDay:
		return "year_first_day"
	case ResetYearExpireDay:
		return "year_expire_day"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseResetMethod accepts the numeric value or the String() name.
func ParseResetMethod(raw string) (ResetMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for m := ResetMonthFirstDay; m <= ResetYearExpireDay; m++ {
		if normalized == m.String() || normalized == fmt.Sprint(int(m)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown reset method %q / 未知的重置方式", raw)
}

// Calculator 计算距离下次流量重置的天数。
type Calculator struct {
	DefaultMethod ResetMethod
	Location      *time.Location
	Now           func() time.Time
}

// NewCalculator 使用全局默认重置方式与时区构建计算器。
func NewCalculator(defaultMethod ResetMethod, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{DefaultMethod: defaultMethod, Location: loc, Now: time.Now}
}

// ResetDay returns the number of days until the next reset. method nil falls back to
// DefaultMethod. ok is false when no reset should be displayed: the policy is never,
// the user has no expiry, or the user already expired.
func (c *Calculator) ResetDay(method *ResetMethod, expiredAt int64) (days int, ok bool) {
	now := c.now()
	if expiredAt <= 0 || expiredAt <= now.Unix() {
		return 0, false
	}
	resolved := c.DefaultMethod
	if method != nil {
		resolved = *method
	}
	switch resolved {
	case ResetMonthFirstDay:
		return lastDayOfMonth(now) - now.Day(), true
	case ResetExpireDay:
		return c.byExpireDay(now, expiredAt), true
	case ResetYearFirstDay:
		next := time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, c.location())
		return daysBetween(now, next), true
	case ResetYearExpireDay:
		return c.byYearExpireDay(now, expiredAt), true
	default:
		return 0, false
	}
}

func (c *Calculator) byExpireDay(now time.Time, expiredAt int64) int {
	today := now.Day()
	lastDay := lastDayOfMonth(now)
	expireDay := time.Unix(expiredAt, 0).In(c.location()).Day()
	if expireDay >= today && expireDay >= lastDay {
		return lastDay - today
	}
	if expireDay >= today {
		return expireDay - today
	}
	return lastDay - today + expireDay
}

func (c *Calculator) byYearExpireDay(now time.Time, expiredAt int64) int {
	loc := c.location()
	expire := time.Unix(expiredAt, 0).In(loc)
	// time.Date 会把 2 月 29 日在平年规范化为 3 月 1 日。
	thisYear := time.Date(now.Year(), expire.Month(), expire.Day(), 0, 0, 0, 0, loc)
	if thisYear.Unix() > now.Unix() {
		return daysBetween(now, thisYear)
	}
	nextYear := time.Date(now.Year()+1, expire.Month(), expire.Day(), 0, 0, 0, 0, loc)
	return daysBetween(now, nextYear)
}

func (c *Calculator) now() time.Time {
	nowFn := c.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return nowFn().In(c.location())
}

func (c *Calculator) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// daysBetween 按秒差整除 86400，不做四舍五入。
func daysBetween(from, to time.Time) int {
	return int((to.Unix() - from.Unix()) / 86400)
}
