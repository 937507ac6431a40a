package semantics

import "text/template"

// SystemPrompt instructs the model to enrich a data model with descriptions
// and pins down the exact JSON output contract. Configure it as the
// generator's system prompt when wiring the pipeline.
const SystemPrompt = `
I have a data model represented in JSON format, with the following structure:

` + "```" + `
[
    {"name": "model", "columns": [
            {"name": "column_1", "type": "type", "notNull": true, "properties": {}},
            {"name": "column_2", "type": "type", "notNull": true, "properties": {}},
            {"name": "column_3", "type": "type", "notNull": false, "properties": {}}
        ], "properties": {}
    }
]
` + "```" + `

Your task is to update this JSON structure by adding a "description" field inside both the "properties" attribute of each "column" and the "model" itself.
Each "description" should be derived from a user-provided input that explains the purpose or context of the "model" and its respective columns.
Follow these steps:
1. **For the "model"**: Derive a brief description of the model's overall purpose or its context from the user's input. Insert this description in the "properties" field of the "model".
2. **For each "column"**: Derive each column's role or significance from the user's input. Each column's description should be added under its respective "properties" field in the format: "description": "derived text".
3. Ensure that the output is a well-formatted JSON structure, preserving the input's original format and adding the appropriate "description" fields.

### Output Format:

` + "```" + `
{
    "models": [
        {
            "name": "model",
            "columns": [
                {"name": "column_1", "properties": {"description": "<description for column_1>"}},
                {"name": "column_2", "properties": {"description": "<description for column_2>"}},
                {"name": "column_3", "properties": {"description": "<description for column_3>"}}
            ],
            "properties": {"description": "<description for model>"}
        }
    ]
}
` + "```" + `

Make sure that the descriptions are concise, informative, and contextually appropriate based on the input provided by the user.
`

// userPromptTemplate renders the final prompt from the user's free text and
// the picked models serialized as JSON.
var userPromptTemplate = template.Must(template.New("semantics").Parse(`### Input:
User's prompt: {{.UserPrompt}}
Picked models: {{.PickedModels}}

Please provide a brief description for the model and each column based on the user's prompt.
`))

// promptInput is the data fed to userPromptTemplate.
type promptInput struct {
	UserPrompt   string
	PickedModels string
}
