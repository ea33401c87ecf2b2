package generator

// pointTemplate is one standard point attached to every piece of
// equipment of a kind. Types holds one or more Brick classes.
type pointTemplate struct {
	Name  string
	Types []string
	Label string
}

var ahuPoints = []pointTemplate{
	{"Supply_Air_Temp", []string{"Supply_Air_Temperature_Sensor"}, "Supply Air Temp"},
	{"Return_Air_Temp", []string{"Return_Air_Temperature_Sensor"}, "Return Air Temp"},
	{"Mixed_Air_Temp", []string{"Mixed_Air_Temperature_Sensor"}, "Mixed Air Temp"},
	{"Outside_Air_Temp", []string{"Outside_Air_Temperature_Sensor"}, "Outside Air Temp"},
	{"Supply_Air_Pressure", []string{"Supply_Air_Static_Pressure_Sensor"}, "Supply Air Pressure"},
	{"CCV", []string{"Cooling_Command", "Valve_Command"}, "CCV"},
	{"Cooling_Valve_Output", []string{"Cooling_Command", "Valve_Command"}, "Cooling Valve Output"},
	{"Supply_Air_Temp_Setpoint", []string{"Supply_Air_Temperature_Setpoint"}, "Supply Air Temp Setpoint"},
}

var vavPoints = []pointTemplate{
	{"Zone_Air_Temp", []string{"Zone_Air_Temperature_Sensor"}, "Zone Air Temp"},
	{"Zone_Air_Temp_Setpoint", []string{"Zone_Air_Temperature_Setpoint"}, "Zone Air Temp Setpoint"},
	{"Zone_Air_Control_Temp", []string{"Zone_Air_Temperature_Setpoint"}, "Zone Air Control Temp"},
	{"Zone_Air_Damper_Command", []string{"Damper_Position_Setpoint"}, "Zone Air Damper Command"},
	{"Zone_Heating_Mode", []string{"Heating_Command"}, "Zone Heating Mode"},
	{"Zone_Percent_Air_Flow", []string{"Air_Flow_Sensor"}, "Zone Percent Air Flow"},
	{"Zone_Supply_Air_Flow", []string{"Supply_Air_Flow_Sensor"}, "Zone Supply Air Flow"},
	{"Zone_Supply_Air_Temp", []string{"Supply_Air_Temperature_Sensor"}, "Zone Supply Air Temp"},
	{"Zone_Reheat_Valve_Command", []string{"Command"}, "Zone Reheat Valve Command"},
}

var chillerPoints = []pointTemplate{
	{"Building_Chilled_Water_Supply_Temp", []string{"Chilled_Water_Supply_Temperature_Sensor"}, "Building Chilled Water Supply Temp"},
	{"Building_Chilled_Water_Return_Temp", []string{"Chilled_Water_Return_Temperature_Sensor"}, "Building Chilled Water Return Temp"},
	{"Loop_Chilled_Water_Supply_Temp", []string{"Chilled_Water_Supply_Temperature_Sensor"}, "Loop Chilled Water Supply Temp"},
	{"Loop_Chilled_Water_Return_Temp", []string{"Chilled_Water_Return_Temperature_Sensor"}, "Loop Chilled Water Return Temp"},
	{"ECONOMIZER", []string{"Damper_Position_Command"}, "ECONOMIZER"},
}
