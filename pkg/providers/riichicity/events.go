// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package riichicity

import (
	"slices"
	"strconv"
	"strings"
)

const (
	EventGameStart         = 1
	EventSendCurrentAction = 2
	EventSendOtherAction   = 3
	EventActionBrc         = 4
	EventGameEnd           = 5
	EventRoomEnd           = 6
	EventGangBaoBrc        = 7
	EventLiZhiBrc          = 8
	EventUserZhenTing      = 9
	EventPause             = 10
	EventTing              = 11
)

const (
	ActionZuoChi    = 2
	ActionZhongChi  = 3
	ActionYouChi    = 4
	ActionPeng      = 5
	ActionMingGang  = 6
	ActionChiHu     = 7
	ActionAnGang    = 8
	ActionBuGang    = 9
	ActionZiMo      = 10
	ActionPullNorth = 13
)

// wind codes of quan_feng
const (
	windEast  = 49
	windSouth = 65
)

type gameStart struct {
	DealerPos    int `json:"dealer_pos"`
	QuanFeng     int `json:"quan_feng"`
	ChangCi      int `json:"chang_ci"`
	BenChangNum  int `json:"ben_chang_num"`
	LiZhiBangNum int `json:"li_zhi_bang_num"`
	UserInfoList []struct {
		UserID     int64 `json:"user_id"`
		HandPoints int64 `json:"hand_points"`
	} `json:"user_info_list"`
}

type actionBrc struct {
	Action     int   `json:"action"`
	Card       int   `json:"card"`
	UserID     int64 `json:"user_id"`
	GroupCards []int `json:"group_cards"`
}

type fang struct {
	FangType int `json:"fang_type"`
	FangNum  int `json:"fang_num"`
}

type winInfo struct {
	FangInfo  []fang `json:"fang_info"`
	AllPoint  int64  `json:"all_point"`
	UserCards []int  `json:"user_cards"`
	UserID    int64  `json:"user_id"`
}

type userProfit struct {
	UserID      int64 `json:"user_id"`
	PointProfit int64 `json:"point_profit"`
	UserPoint   int64 `json:"user_point"`
}

type gameEnd struct {
	EndType    int          `json:"end_type"`
	WinInfo    []winInfo    `json:"win_info"`
	UserProfit []userProfit `json:"user_profit"`
}

type roomEnd struct {
	UserData []struct {
		UserID   int64   `json:"user_id"`
		PointNum int64   `json:"point_num"`
		Score    float64 `json:"score"`
	} `json:"user_data"`
	PaiPuID string `json:"pai_pu_id"`
}

var yakuNames = []string{
	"立直", "门清自摸", "一发", "岭上开花", "海底捞月", "河底捞鱼", "抢杠", "役牌：中",
	"役牌：发", "役牌：白", "役牌：场风牌", "役牌：自风牌", "一杯口", "平和", "断幺九", "双立直",
	"对对和", "七对子", "三暗刻", "三杠子", "混老头", "混全带幺九", "一气通贯", "三色同顺",
	"小三元", "三色同刻", "纯全带幺九", "混一色", "二杯口", "清一色", "流局满贯", "天和",
	"地和", "人和", "国士无双", "国士无双十三面", "九莲宝灯", "纯正九莲宝灯", "四暗刻", "四暗刻单骑",
	"四杠子", "清老头", "字一色", "大四喜", "小四喜", "大三元", "绿一色", "无发绿一色",
	"八连庄", "赤宝牌", "宝牌", "里宝牌", "开立直", "开双立直", "开立直", "拔北宝牌",
	"役牌：北",
}

func yakuName(id int) string {
	if id >= 0 && id < len(yakuNames) {
		return yakuNames[id]
	}
	return strconv.Itoa(id)
}

// tile decodes a card code: the low nibble is the number, the second nibble the suit
// (0 p, 1 s, 2 m, 3-9 honors) and 0x100 marks a red five.
func tile(card int) (no int, suit byte) {
	d1, d2, d3 := card&0xf, (card&0xf0)>>4, (card&0xf00)>>8
	no = d1
	switch {
	case d2 < 3:
		suit = "psm"[d2]
	case d2 < 10:
		suit = 'z'
		no = d2 - 2
	default:
		suit = '?'
	}
	if d3 == 1 {
		no = 0
	}
	return no, suit
}

func tilesString(cards []int) string {
	sorted := slices.Clone(cards)
	slices.SortStableFunc(sorted, func(a, b int) int { return a%256 - b%256 })

	var b strings.Builder
	var current byte
	for _, card := range sorted {
		no, suit := tile(card)
		if current != 0 && suit != current {
			b.WriteByte(current)
		}
		current = suit
		b.WriteString(strconv.Itoa(no))
	}
	if current != 0 {
		b.WriteByte(current)
	}
	return b.String()
}

// handString renders the closed hand, each call and the winning tile.
func handString(hand []int, melds [][]int, winning int) string {
	parts := []string{tilesString(hand)}
	for _, m := range melds {
		parts = append(parts, tilesString(m))
	}
	parts = append(parts, tilesString([]int{winning}))
	return strings.Join(parts, " ")
}

func yakuString(fangs []fang) string {
	lines := make([]string, 0, len(fangs))
	for _, f := range fangs {
		lines = append(lines, strconv.Itoa(f.FangNum)+" "+yakuName(f.FangType))
	}
	return strings.Join(lines, "\n")
}
