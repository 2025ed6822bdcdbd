package prompt

// Handlebars templates. The toolNames partial is defined at registry setup.

const plannerTemplate = `You are a tool selection assistant. Your job is to break down the given math problem into calls to predefined mathematical tools.

Rules:
1. Only use the following tools: {{> toolNames}}.
2. Always map the problem correctly to the most appropriate tool(s).
3. Every argument is a literal number, or a list of numbers for AVG. Steps cannot refer to earlier results.
4. The answer is the result of the last step.
5. Respond with a JSON array in this format:
   [{"tool": "TOOL_NAME", "args": [arg1, arg2]}]

Examples:
- Problem: "What is the square root of 9?"
  Output: [{"tool": "SQRT", "args": [9]}]
- Problem: "What is the product of 5 and 3?"
  Output: [{"tool": "PRODUCT", "args": [5, 3]}]
- Problem: "What is the average of 2, 4 and 6?"
  Output: [{"tool": "AVG", "args": [[2, 4, 6]]}]
- Problem: "What is the remainder when 15 is divided by 4?"
  Output: [{"tool": "MODULO", "args": [15, 4]}]

Problem: {{{question}}}
Provide only the JSON output without any explanations or code fences.`

const correctorTemplate = `The execution of the tool {{tool}} with arguments {{args}} failed with error: "{{{error}}}".
Only the following tools exist: {{> toolNames}}.
Suggest exactly one corrected tool call as a JSON object in this format:
{"tool": "TOOL_NAME", "args": [arg1, arg2]}
Provide only the JSON output without any explanations or code fences.`
