package agent

import (
	"encoding/json"

	"whiteboard-backend/internal/llm"
	"whiteboard-backend/internal/model"
)

func toolDefs() []llm.Tool {
	return []llm.Tool{
		{Name: "createStickyNote", Description: "Create a sticky note at a position with optional text and color.",
			InputSchema: schema(`{"type":"object","properties":{
				"x":{"type":"number"},"y":{"type":"number"},
				"width":{"type":"number"},"height":{"type":"number"},
				"text":{"type":"string"},"color":{"type":"string"}},
				"required":["x","y"]}`)},
		{Name: "createText", Description: "Create a free-standing text label.",
			InputSchema: schema(`{"type":"object","properties":{
				"x":{"type":"number"},"y":{"type":"number"},
				"text":{"type":"string"},"fontSize":{"type":"number"},"color":{"type":"string"}},
				"required":["x","y","text"]}`)},
		{Name: "createShape", Description: "Create a rectangle, circle, or line.",
			InputSchema: schema(`{"type":"object","properties":{
				"type":{"type":"string","enum":["rectangle","circle","line"]},
				"x":{"type":"number"},"y":{"type":"number"},
				"width":{"type":"number"},"height":{"type":"number"},
				"radius":{"type":"number"},
				"points":{"type":"array","items":{"type":"number"}},
				"color":{"type":"string"}},
				"required":["type","x","y"]}`)},
		{Name: "createFrame", Description: "Create a container frame that other objects can be grouped inside.",
			InputSchema: schema(`{"type":"object","properties":{
				"x":{"type":"number"},"y":{"type":"number"},
				"width":{"type":"number"},"height":{"type":"number"},
				"text":{"type":"string"},"color":{"type":"string"}},
				"required":["x","y","width","height"]}`)},
		{Name: "createConnector", Description: "Create a connector between two existing objects, referenced by id.",
			InputSchema: schema(`{"type":"object","properties":{
				"fromId":{"type":"string"},"toId":{"type":"string"},
				"lineStyle":{"type":"string","enum":["solid","dashed"]},
				"arrowHead":{"type":"boolean"}},
				"required":["fromId","toId"]}`)},
		{Name: "moveObject", Description: "Move an existing object to a new position, referenced by id.",
			InputSchema: schema(`{"type":"object","properties":{
				"id":{"type":"string"},"x":{"type":"number"},"y":{"type":"number"}},
				"required":["id","x","y"]}`)},
		{Name: "resizeObject", Description: "Resize an existing object, referenced by id.",
			InputSchema: schema(`{"type":"object","properties":{
				"id":{"type":"string"},"width":{"type":"number"},"height":{"type":"number"}},
				"required":["id","width","height"]}`)},
		{Name: "updateText", Description: "Change the text of an existing object, referenced by id.",
			InputSchema: schema(`{"type":"object","properties":{
				"id":{"type":"string"},"text":{"type":"string"}},
				"required":["id","text"]}`)},
		{Name: "changeColor", Description: "Change the color of an existing object, referenced by id.",
			InputSchema: schema(`{"type":"object","properties":{
				"id":{"type":"string"},"color":{"type":"string"}},
				"required":["id","color"]}`)},
		{Name: "updateConnectorStyle", Description: "Change a connector's line style or arrowhead, referenced by id.",
			InputSchema: schema(`{"type":"object","properties":{
				"objectId":{"type":"string"},
				"lineStyle":{"type":"string","enum":["solid","dashed"]},
				"arrowHead":{"type":"boolean"}},
				"required":["objectId"]}`)},
		{Name: "deleteObject", Description: "Delete an existing object, referenced by id.",
			InputSchema: schema(`{"type":"object","properties":{
				"id":{"type":"string"}},
				"required":["id"]}`)},
		{Name: "getBoardState", Description: "Return the current set of objects on the board.",
			InputSchema: schema(`{"type":"object","properties":{}}`)},
	}
}

func schema(s string) json.RawMessage {
	return json.RawMessage(s)
}

func decodeInput(input json.RawMessage, v any) error {
	return json.Unmarshal(input, v)
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// objectTypeOfTool maps a create-tool name (and, for createShape, its
// declared shape type) to the resulting model.ObjectType.
func objectTypeOfTool(tool string, input map[string]any) model.ObjectType {
	switch tool {
	case "createStickyNote":
		return model.ObjectTypeSticky
	case "createText":
		return model.ObjectTypeText
	case "createFrame":
		return model.ObjectTypeFrame
	case "createConnector":
		return model.ObjectTypeConnector
	case "createShape":
		if s, ok := stringField(input, "type"); ok {
			return model.ObjectType(s)
		}
	}
	return ""
}
