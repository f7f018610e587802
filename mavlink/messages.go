package mavlink

type messageInfo struct {
	name     string
	crcExtra uint8
}

// messages covers the common set an autopilot link carries.
var messages = map[uint32]messageInfo{
	0:   {"HEARTBEAT", 50},
	1:   {"SYS_STATUS", 124},
	2:   {"SYSTEM_TIME", 137},
	4:   {"PING", 237},
	22:  {"PARAM_VALUE", 220},
	24:  {"GPS_RAW_INT", 24},
	27:  {"RAW_IMU", 144},
	29:  {"SCALED_PRESSURE", 115},
	30:  {"ATTITUDE", 39},
	33:  {"GLOBAL_POSITION_INT", 104},
	36:  {"SERVO_OUTPUT_RAW", 222},
	42:  {"MISSION_CURRENT", 28},
	65:  {"RC_CHANNELS", 118},
	74:  {"VFR_HUD", 20},
	76:  {"COMMAND_LONG", 152},
	77:  {"COMMAND_ACK", 143},
	253: {"STATUSTEXT", 83},
}
